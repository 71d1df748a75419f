package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

// ErrNotFound is returned when a key has never been stored
var ErrNotFound = errors.New("setting not found")

// SettingsRepository is the device-local string key/value store
type SettingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// queryer is satisfied by both *sql.DB and *sql.Tx
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Get retrieves a value by key
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, error) {
	return get(ctx, r.db, key)
}

func get(ctx context.Context, q queryer, key string) (string, error) {
	query := `SELECT value FROM settings WHERE key = ?`
	var value string
	err := q.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// GetMany retrieves the given keys in one transaction, so a concurrent SetMany
// is seen entirely or not at all. Missing keys are absent from the result.
func (r *SettingsRepository) GetMany(ctx context.Context, keys ...string) (map[string]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settings read: %w", err)
	}
	defer tx.Rollback()

	result := make(map[string]string, len(keys))
	for _, key := range keys {
		value, err := get(ctx, tx, key)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result[key] = value
	}
	return result, nil
}

// SetMany stores all values in one transaction, so readers never see a partial update
func (r *SettingsRepository) SetMany(ctx context.Context, values map[string]string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin settings transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, query, k, values[k]); err != nil {
			return fmt.Errorf("failed to set setting %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit settings: %w", err)
	}
	return nil
}
