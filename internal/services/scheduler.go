package services

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// SchedulerService wraps cron-based jobs
type SchedulerService struct {
	cron *cron.Cron
}

// NewSchedulerService creates a scheduler working in loc
func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.UTC
	}
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleInterval registers a periodic job every given duration.
// Runs are never skipped: a run that has to wait simply starts late.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	if interval < time.Second {
		interval = time.Second
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %s", interval.Truncate(time.Second)), job)
}

// Start runs the scheduler in its own goroutine
func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
