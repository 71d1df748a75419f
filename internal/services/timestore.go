package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"reunion-countdown/internal/config"
	"reunion-countdown/internal/models"
)

// Persisted keys, namespaced away from any other local state
const (
	KeyTargetUTC  = "countdown.target_utc"
	KeyLocalDate  = "countdown.local_date"
	KeyLocalTime  = "countdown.local_time"
	KeyTZOffset   = "countdown.tz_offset"
	KeyReachedFor = "countdown.reached_for"
	KeySecret     = "countdown.secret"
)

const (
	dateLayout    = "2006-01-02"
	instantLayout = "2006-01-02T15:04:05.000Z07:00"
	midnight      = "00:00"
)

var (
	ErrMissingDate       = errors.New("date is required")
	ErrInvalidDate       = errors.New("date must be a calendar date in YYYY-MM-DD format")
	ErrInvalidTime       = config.ErrInvalidClock
	ErrInvalidOffset     = config.ErrInvalidOffset
	ErrUnsupportedOffset = errors.New("timezone offset is not one of the selectable offsets")
)

// SettingsStore is the string key/value persistence the time store and gate need
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, error)
	GetMany(ctx context.Context, keys ...string) (map[string]string, error)
	SetMany(ctx context.Context, values map[string]string) error
}

// ParseOffset converts "±HH:MM" into signed total minutes
func ParseOffset(offset string) (int, error) {
	return config.ParseOffset(offset)
}

// FormatInstant renders an instant as an ISO-8601 UTC string with milliseconds
func FormatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

// ParseInstant reads an instant written by FormatInstant
func ParseInstant(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse instant %q: %w", s, err)
	}
	return t.UTC(), nil
}

// TimeStore converts user-entered date/time/offset triples into instants and persists them
type TimeStore struct {
	store       SettingsStore
	gate        *AccessGate
	timezones   []string
	allowed     map[string]struct{}
	defaultTZ   string
	defaultTime string
}

// NewTimeStore creates a new time store
func NewTimeStore(store SettingsStore, gate *AccessGate, cfg config.CountdownConfig) *TimeStore {
	allowed := make(map[string]struct{}, len(cfg.Timezones))
	for _, tz := range cfg.Timezones {
		allowed[tz] = struct{}{}
	}

	return &TimeStore{
		store:       store,
		gate:        gate,
		timezones:   append([]string(nil), cfg.Timezones...),
		allowed:     allowed,
		defaultTZ:   cfg.DefaultTimezone,
		defaultTime: cfg.DefaultTime,
	}
}

// Timezones returns the selectable offsets
func (s *TimeStore) Timezones() []string {
	return append([]string(nil), s.timezones...)
}

// DefaultTimezone returns the offset preselected when nothing is stored
func (s *TimeStore) DefaultTimezone() string {
	return s.defaultTZ
}

// ToAbsoluteInstant interprets localDate+localTime as wall-clock time at tzOffset and returns it in UTC
func (s *TimeStore) ToAbsoluteInstant(localDate, localTime, tzOffset string) (time.Time, error) {
	if strings.TrimSpace(localDate) == "" {
		return time.Time{}, ErrMissingDate
	}
	if localTime == "" {
		localTime = midnight
	}

	if _, ok := s.allowed[tzOffset]; !ok {
		return time.Time{}, fmt.Errorf("%q: %w", tzOffset, ErrUnsupportedOffset)
	}
	offsetMinutes, err := ParseOffset(tzOffset)
	if err != nil {
		return time.Time{}, err
	}

	day, err := time.Parse(dateLayout, localDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q: %w", localDate, ErrInvalidDate)
	}
	hour, minute, err := config.ParseClock(localTime)
	if err != nil {
		return time.Time{}, err
	}

	wall := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, time.UTC)
	return wall.Add(-time.Duration(offsetMinutes) * time.Minute), nil
}

// Prepare validates the inputs and builds the target they describe, without persisting it
func (s *TimeStore) Prepare(localDate, localTime, tzOffset string) (models.TargetInstant, error) {
	if localTime == "" {
		localTime = midnight
	}
	utc, err := s.ToAbsoluteInstant(localDate, localTime, tzOffset)
	if err != nil {
		return models.TargetInstant{}, err
	}
	return models.TargetInstant{
		UTC:       utc,
		LocalDate: localDate,
		LocalTime: localTime,
		TZOffset:  tzOffset,
	}, nil
}

// SaveResult is the outcome of a save attempt
type SaveResult struct {
	Decision Decision
	Target   *models.TargetInstant
}

// Save validates the inputs, asks the access gate and, when granted, persists the new target.
// The reached flag is reset in the same write.
func (s *TimeStore) Save(ctx context.Context, prompter SecretPrompter, localDate, localTime, tzOffset string) (*SaveResult, error) {
	target, err := s.Prepare(localDate, localTime, tzOffset)
	if err != nil {
		return nil, err
	}

	decision, err := s.gate.Authorize(ctx, prompter)
	if err != nil {
		return nil, err
	}
	if !decision.Granted {
		return &SaveResult{Decision: decision}, nil
	}

	err = s.store.SetMany(ctx, map[string]string{
		KeyTargetUTC:  FormatInstant(target.UTC),
		KeyLocalDate:  target.LocalDate,
		KeyLocalTime:  target.LocalTime,
		KeyTZOffset:   target.TZOffset,
		KeyReachedFor: "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to persist target: %w", err)
	}

	return &SaveResult{Decision: decision, Target: &target}, nil
}

// Load reads the persisted target; nil means no target was ever saved
func (s *TimeStore) Load(ctx context.Context) (*models.TargetInstant, error) {
	target, _, err := s.LoadState(ctx)
	return target, err
}

// LoadState reads the persisted target together with its reached flag in one read.
// The flag only counts when it was recorded for the stored target.
func (s *TimeStore) LoadState(ctx context.Context) (*models.TargetInstant, bool, error) {
	values, err := s.store.GetMany(ctx, KeyTargetUTC, KeyLocalDate, KeyLocalTime, KeyTZOffset, KeyReachedFor)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load target: %w", err)
	}

	raw, ok := values[KeyTargetUTC]
	if !ok || raw == "" {
		return nil, false, nil
	}

	utc, err := ParseInstant(raw)
	if err != nil {
		return nil, false, err
	}

	target := &models.TargetInstant{
		UTC:       utc,
		LocalDate: values[KeyLocalDate],
		LocalTime: values[KeyLocalTime],
		TZOffset:  values[KeyTZOffset],
	}
	return target, values[KeyReachedFor] == raw, nil
}

// LoadReached reports whether the stored target has been reached
func (s *TimeStore) LoadReached(ctx context.Context) (bool, error) {
	_, reached, err := s.LoadState(ctx)
	return reached, err
}

// MarkReached records that target reached zero. A target saved since then
// is unaffected, the record names the instant it was made for.
func (s *TimeStore) MarkReached(ctx context.Context, target models.TargetInstant) error {
	if err := s.store.SetMany(ctx, map[string]string{KeyReachedFor: FormatInstant(target.UTC)}); err != nil {
		return fmt.Errorf("failed to persist reached flag: %w", err)
	}
	return nil
}

// Form returns the edit-form values, falling back to defaults for fields never saved
func (s *TimeStore) Form(ctx context.Context) (models.TargetForm, error) {
	values, err := s.store.GetMany(ctx, KeyLocalDate, KeyLocalTime, KeyTZOffset)
	if err != nil {
		return models.TargetForm{}, fmt.Errorf("failed to load form: %w", err)
	}

	form := models.TargetForm{
		Date:     values[KeyLocalDate],
		Time:     values[KeyLocalTime],
		Timezone: values[KeyTZOffset],
	}
	if form.Time == "" {
		form.Time = s.defaultTime
	}
	if form.Timezone == "" {
		form.Timezone = s.defaultTZ
	}
	return form, nil
}
