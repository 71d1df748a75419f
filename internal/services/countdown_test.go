package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"reunion-countdown/internal/config"
	"reunion-countdown/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu    sync.Mutex
	calls []models.TargetInstant
}

func (n *recordingNotifier) NotifyArrived(_ context.Context, target models.TargetInstant) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, target)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.calls)
}

func target(utc time.Time) *models.TargetInstant {
	return &models.TargetInstant{UTC: utc}
}

func TestCompute(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		remain time.Duration
		want   models.Countdown
	}{
		{
			name:   "one of each",
			remain: 90061 * time.Second,
			want:   models.Countdown{Days: 1, Hours: 1, Minutes: 1, Seconds: 1, Status: models.StatusWeek},
		},
		{
			name:   "sub-second floors to zero",
			remain: 999 * time.Millisecond,
			want:   models.Countdown{Status: models.StatusFinal},
		},
		{
			name:   "just under an hour is final",
			remain: 59*time.Minute + 59*time.Second,
			want:   models.Countdown{Minutes: 59, Seconds: 59, Status: models.StatusFinal},
		},
		{
			name:   "exactly an hour is week",
			remain: time.Hour,
			want:   models.Countdown{Hours: 1, Status: models.StatusWeek},
		},
		{
			name:   "seven days is week",
			remain: 7 * 24 * time.Hour,
			want:   models.Countdown{Days: 7, Status: models.StatusWeek},
		},
		{
			name:   "eight days is month",
			remain: 8 * 24 * time.Hour,
			want:   models.Countdown{Days: 8, Status: models.StatusMonth},
		},
		{
			name:   "thirty days is month",
			remain: 30*24*time.Hour + 5*time.Second,
			want:   models.Countdown{Days: 30, Seconds: 5, Status: models.StatusMonth},
		},
		{
			name:   "thirty one days is far",
			remain: 31 * 24 * time.Hour,
			want:   models.Countdown{Days: 31, Status: models.StatusFar},
		},
		{
			name:   "zero is arrived",
			remain: 0,
			want:   models.Countdown{Status: models.StatusArrived},
		},
		{
			name:   "past is arrived",
			remain: -time.Hour,
			want:   models.Countdown{Status: models.StatusArrived},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(base, target(base.Add(tt.remain)))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompute_Unset(t *testing.T) {
	got := Compute(time.Now(), nil)
	assert.Equal(t, models.Countdown{Status: models.StatusUnset}, got)
}

func TestFormatCountdown(t *testing.T) {
	c := models.Countdown{Days: 12, Hours: 3, Minutes: 4, Seconds: 5}
	assert.Equal(t, "12d 03:04:05", FormatCountdown(c))
}

func setupCountdown(t *testing.T, now time.Time) (*CountdownService, *MockClock, *recordingNotifier, *TimeStore) {
	t.Helper()
	ts, _ := setupTimeStore(t)
	clock := NewMockClock(now)
	notifier := &recordingNotifier{}
	svc := NewCountdownService(ts, clock, notifier)
	require.NoError(t, svc.Init(context.Background()))
	return svc, clock, notifier, ts
}

func TestCountdownService_UnsetSnapshot(t *testing.T) {
	svc, _, _, _ := setupCountdown(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))

	snap, arrivedNow := svc.Tick(context.Background())
	assert.False(t, arrivedNow)
	assert.Equal(t, models.StatusUnset, snap.Status)
	assert.Equal(t, models.CaptionNotStarted, snap.Caption)
	assert.Zero(t, snap.Progress)
	assert.Nil(t, snap.Target)
}

func TestCountdownService_ArrivalIsOneShot(t *testing.T) {
	ctx := context.Background()
	// 2025-12-24 18:00 at +09:00 is 09:00 UTC
	svc, clock, notifier, ts := setupCountdown(t, time.Date(2025, 12, 24, 8, 59, 58, 0, time.UTC))

	res, err := svc.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)
	require.True(t, res.Decision.Granted)

	snap, arrivedNow := svc.Tick(ctx)
	assert.False(t, arrivedNow)
	assert.Equal(t, models.StatusFinal, snap.Status)
	assert.Equal(t, int64(2), snap.Seconds)

	clock.Advance(2 * time.Second)
	snap, arrivedNow = svc.Tick(ctx)
	assert.True(t, arrivedNow)
	assert.Equal(t, models.StatusArrived, snap.Status)
	assert.True(t, snap.Reached)
	assert.Equal(t, 1.0, snap.Progress)
	assert.Equal(t, models.CaptionArrived, snap.Caption)

	for i := 0; i < 3; i++ {
		clock.Advance(time.Second)
		snap, arrivedNow = svc.Tick(ctx)
		assert.False(t, arrivedNow)
		assert.Equal(t, models.StatusArrived, snap.Status)
	}
	assert.Equal(t, 1, notifier.count())

	reached, err := ts.LoadReached(ctx)
	require.NoError(t, err)
	assert.True(t, reached)
}

func TestCountdownService_ReachedSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	ts, _ := setupTimeStore(t)
	clock := NewMockClock(time.Date(2025, 12, 24, 9, 0, 1, 0, time.UTC))

	first := NewCountdownService(ts, clock)
	require.NoError(t, first.Init(ctx))
	_, err := first.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)
	_, arrivedNow := first.Tick(ctx)
	require.True(t, arrivedNow)

	notifier := &recordingNotifier{}
	second := NewCountdownService(ts, clock, notifier)
	require.NoError(t, second.Init(ctx))
	assert.True(t, second.Reached())

	_, arrivedNow = second.Tick(ctx)
	assert.False(t, arrivedNow)
	assert.Zero(t, notifier.count())
}

func TestCountdownService_SaveClearsReached(t *testing.T) {
	ctx := context.Background()
	svc, clock, notifier, _ := setupCountdown(t, time.Date(2025, 12, 24, 9, 0, 0, 0, time.UTC))

	_, err := svc.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)
	_, arrivedNow := svc.Tick(ctx)
	require.True(t, arrivedNow)

	_, err = svc.Save(ctx, NewStaticPrompter("abc"), "2025-12-25", "18:00", "+09:00")
	require.NoError(t, err)
	assert.False(t, svc.Reached())

	snap, arrivedNow := svc.Tick(ctx)
	assert.False(t, arrivedNow)
	assert.Equal(t, models.StatusWeek, snap.Status)
	assert.Equal(t, int64(1), snap.Days)

	clock.Advance(24 * time.Hour)
	_, arrivedNow = svc.Tick(ctx)
	assert.True(t, arrivedNow)
	assert.Equal(t, 2, notifier.count())
}

func TestCountdownService_SaveInThePastArrivesOnNextTick(t *testing.T) {
	ctx := context.Background()
	svc, _, notifier, _ := setupCountdown(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)

	_, arrivedNow := svc.Tick(ctx)
	assert.True(t, arrivedNow)
	assert.Equal(t, 1, notifier.count())
}

func TestCountdownService_RejectedSaveKeepsTarget(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := setupCountdown(t, time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC))

	_, err := svc.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)

	res, err := svc.Save(ctx, NewStaticPrompter("nope"), "2026-12-24", "18:00", "+09:00")
	require.NoError(t, err)
	assert.False(t, res.Decision.Granted)
	assert.Equal(t, "2025-12-24", svc.Target().LocalDate)
}

func TestCountdownService_AddNotifier(t *testing.T) {
	ctx := context.Background()
	svc, _, first, _ := setupCountdown(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	second := &recordingNotifier{}
	svc.AddNotifier(second)

	_, err := svc.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)
	svc.Tick(ctx)

	assert.Equal(t, 1, first.count())
	assert.Equal(t, 1, second.count())
}

func TestCountdownService_TargetSavedByAnotherProcess(t *testing.T) {
	ctx := context.Background()
	settings := setupSettings(t)
	newTimeStore := func() *TimeStore {
		return NewTimeStore(settings, NewAccessGate(settings), config.Default().Countdown)
	}

	clock := NewMockClock(time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC))
	notifier := &recordingNotifier{}
	server := NewCountdownService(newTimeStore(), clock, notifier)
	require.NoError(t, server.Init(ctx))
	_, err := server.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)

	// the command line saves a new target while the server keeps running
	cli := NewCountdownService(newTimeStore(), clock)
	require.NoError(t, cli.Init(ctx))
	_, err = cli.Save(ctx, NewStaticPrompter("abc"), "2026-12-24", "18:00", "+09:00")
	require.NoError(t, err)

	// the old target passes zero before the server ticks again
	clock.Set(time.Date(2025, 12, 24, 9, 0, 1, 0, time.UTC))
	snap, arrivedNow := server.Tick(ctx)
	assert.False(t, arrivedNow)
	assert.Zero(t, notifier.count())
	require.NotNil(t, snap.Target)
	assert.Equal(t, "2026-12-24", snap.Target.LocalDate)
	assert.Equal(t, models.StatusFar, snap.Status)

	restarted := NewCountdownService(newTimeStore(), clock)
	require.NoError(t, restarted.Init(ctx))
	assert.False(t, restarted.Reached())
	snap = restarted.Snapshot()
	assert.Equal(t, models.StatusFar, snap.Status)
	assert.Equal(t, int64(364), snap.Days)
	assert.Less(t, snap.Progress, 1.0)
}

func TestCountdownService_StaleReachedRecordIsIgnoredOnRestart(t *testing.T) {
	ctx := context.Background()
	settings := setupSettings(t)
	newTimeStore := func() *TimeStore {
		return NewTimeStore(settings, NewAccessGate(settings), config.Default().Countdown)
	}
	clock := NewMockClock(time.Date(2025, 12, 24, 8, 0, 0, 0, time.UTC))

	server := NewCountdownService(newTimeStore(), clock)
	require.NoError(t, server.Init(ctx))
	_, err := server.Save(ctx, NewStaticPrompter("abc"), "2025-12-24", "18:00", "+09:00")
	require.NoError(t, err)

	// the server's in-memory target is still the old one when it marks arrival
	clock.Set(time.Date(2025, 12, 24, 9, 0, 1, 0, time.UTC))
	_, arrivedNow := server.Tick(ctx)
	require.True(t, arrivedNow)

	_, err = newTimeStore().Save(ctx, NewStaticPrompter("abc"), "2026-12-24", "18:00", "+09:00")
	require.NoError(t, err)
	require.NoError(t, newTimeStore().MarkReached(ctx, *server.Target()))

	restarted := NewCountdownService(newTimeStore(), clock)
	require.NoError(t, restarted.Init(ctx))
	assert.False(t, restarted.Reached())
	assert.Equal(t, models.StatusFar, restarted.Snapshot().Status)
}
