package services

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerService_ScheduleInterval(t *testing.T) {
	s := NewSchedulerService(nil)

	var runs atomic.Int32
	_, err := s.ScheduleInterval(time.Second, func() { runs.Add(1) })
	require.NoError(t, err)

	s.Start()
	defer s.Stop()

	assert.Eventually(t, func() bool { return runs.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerService_RejectsNonPositiveInterval(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	_, err := s.ScheduleInterval(0, func() {})
	require.Error(t, err)
}

func TestSchedulerService_SubSecondRoundsUp(t *testing.T) {
	s := NewSchedulerService(time.UTC)

	id, err := s.ScheduleInterval(100*time.Millisecond, func() {})
	require.NoError(t, err)
	assert.NotZero(t, id)
}
