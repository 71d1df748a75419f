package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"reunion-countdown/internal/models"

	"github.com/rs/zerolog/log"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
)

// Compute decomposes the time left until target into days, hours, minutes and seconds.
// It is a pure function of its arguments.
func Compute(now time.Time, target *models.TargetInstant) models.Countdown {
	if target == nil {
		return models.Countdown{Status: models.StatusUnset}
	}

	diff := target.UTC.UnixMilli() - now.UnixMilli()
	if diff <= 0 {
		return models.Countdown{Status: models.StatusArrived}
	}

	total := diff / 1000
	c := models.Countdown{
		Days:    total / secondsPerDay,
		Hours:   total % secondsPerDay / secondsPerHour,
		Minutes: total % secondsPerHour / secondsPerMinute,
		Seconds: total % secondsPerMinute,
	}
	c.Status = StatusFor(c.Days, c.Hours, c.Minutes)
	return c
}

// StatusFor picks the status category for a positive remaining duration; first match wins
func StatusFor(days, hours, minutes int64) models.Status {
	switch {
	case days == 0 && hours == 0 && minutes < 60:
		return models.StatusFinal
	case days <= 7:
		return models.StatusWeek
	case days <= 30:
		return models.StatusMonth
	default:
		return models.StatusFar
	}
}

// ArrivalNotifier is told once when the countdown reaches zero
type ArrivalNotifier interface {
	NotifyArrived(ctx context.Context, target models.TargetInstant) error
}

// CountdownService owns the session state: the current target and the reached flag.
// Save and Tick are serialized, so a tick sees either the old target or the new one.
type CountdownService struct {
	mu        sync.Mutex
	timeStore *TimeStore
	clock     Clock
	notifiers []ArrivalNotifier

	target  *models.TargetInstant
	reached bool
}

// NewCountdownService creates a new countdown service
func NewCountdownService(timeStore *TimeStore, clock Clock, notifiers ...ArrivalNotifier) *CountdownService {
	if clock == nil {
		clock = RealClock{}
	}
	return &CountdownService{
		timeStore: timeStore,
		clock:     clock,
		notifiers: notifiers,
	}
}

// AddNotifier registers another arrival notifier
func (s *CountdownService) AddNotifier(n ArrivalNotifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifiers = append(s.notifiers, n)
}

// Init loads the persisted target and reached flag
func (s *CountdownService) Init(ctx context.Context) error {
	target, reached, err := s.timeStore.LoadState(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.target = target
	s.reached = reached
	s.mu.Unlock()

	if target != nil {
		log.Info().
			Str("target_utc", FormatInstant(target.UTC)).
			Bool("reached", reached).
			Msg("Countdown target loaded")
	}
	return nil
}

// syncLocked adopts a target saved by another process sharing the database
func (s *CountdownService) syncLocked(ctx context.Context) {
	target, reached, err := s.timeStore.LoadState(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to reload countdown target")
		return
	}
	if sameTarget(target, s.target) {
		return
	}

	s.target = target
	s.reached = reached

	if target != nil {
		log.Info().
			Str("target_utc", FormatInstant(target.UTC)).
			Bool("reached", reached).
			Msg("Countdown target changed in store")
	}
}

func sameTarget(a, b *models.TargetInstant) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UTC.Equal(b.UTC) &&
		a.LocalDate == b.LocalDate &&
		a.LocalTime == b.LocalTime &&
		a.TZOffset == b.TZOffset
}

// Save runs the gated save and, when granted, swaps in the new target with a cleared reached flag
func (s *CountdownService) Save(ctx context.Context, prompter SecretPrompter, localDate, localTime, tzOffset string) (*SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.timeStore.Save(ctx, prompter, localDate, localTime, tzOffset)
	if err != nil {
		return nil, err
	}
	if !result.Decision.Granted {
		log.Info().Str("reason", string(result.Decision.Reason)).Msg("Countdown save rejected")
		return result, nil
	}

	s.target = result.Target
	s.reached = false

	log.Info().
		Str("local_date", result.Target.LocalDate).
		Str("local_time", result.Target.LocalTime).
		Str("tz_offset", result.Target.TZOffset).
		Str("target_utc", FormatInstant(result.Target.UTC)).
		Msg("Countdown target saved")

	return result, nil
}

// Tick picks up a target saved elsewhere, recomputes the snapshot and performs
// the one-shot arrival transition. arrivedNow is true only on the tick that
// flipped the reached flag.
func (s *CountdownService) Tick(ctx context.Context) (snap models.Snapshot, arrivedNow bool) {
	s.mu.Lock()
	s.syncLocked(ctx)
	now := s.clock.Now()
	countdown := Compute(now, s.target)

	if countdown.Status == models.StatusArrived && !s.reached {
		s.reached = true
		arrivedNow = true
		if err := s.timeStore.MarkReached(ctx, *s.target); err != nil {
			log.Error().Err(err).Msg("Failed to persist reached flag")
		}
	}

	snap = s.snapshotLocked(now, countdown)
	var target models.TargetInstant
	if s.target != nil {
		target = *s.target
	}
	notifiers := s.notifiers
	s.mu.Unlock()

	if arrivedNow {
		log.Info().Str("target_utc", FormatInstant(target.UTC)).Msg("Countdown reached zero")
		for _, n := range notifiers {
			if err := n.NotifyArrived(ctx, target); err != nil {
				log.Error().Err(err).Msg("Failed to send arrival notification")
			}
		}
	}

	return snap, arrivedNow
}

// Snapshot computes the current view without changing any state
func (s *CountdownService) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	return s.snapshotLocked(now, Compute(now, s.target))
}

// Target returns a copy of the current target, or nil when unset
func (s *CountdownService) Target() *models.TargetInstant {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == nil {
		return nil
	}
	t := *s.target
	return &t
}

// Reached reports whether the countdown has hit zero since the last save
func (s *CountdownService) Reached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reached
}

func (s *CountdownService) snapshotLocked(now time.Time, countdown models.Countdown) models.Snapshot {
	if s.reached {
		countdown = models.Countdown{Status: models.StatusArrived}
	}

	progress := Progress(now, s.target, s.reached)

	snap := models.Snapshot{
		Countdown: countdown,
		Progress:  progress,
		Caption:   CaptionFor(progress, s.target != nil),
		Climbers:  Climbers(progress),
		Reached:   s.reached,
		Now:       now.UTC(),
	}
	if s.target != nil {
		t := *s.target
		snap.Target = &t
	}
	return snap
}

// FormatCountdown renders a countdown as "Nd HH:MM:SS"
func FormatCountdown(c models.Countdown) string {
	return fmt.Sprintf("%dd %02d:%02d:%02d", c.Days, c.Hours, c.Minutes, c.Seconds)
}
