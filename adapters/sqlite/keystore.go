package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
)

// KeyStore implements ports.KeyLedger using SQLite.
// Quota state lives in the api_keys row, so it survives restarts.
type KeyStore struct {
	db      *DB
	ceiling int64
	now     func() time.Time
}

// NewKeyStore creates a new SQLite key ledger enforcing quota.Ceiling.
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db, ceiling: quota.Ceiling, now: time.Now}
}

// WithClock sets the time source used for last-used timestamps.
func (s *KeyStore) WithClock(c ports.Clock) *KeyStore {
	s.now = c.Now
	return s
}

// Consume atomically consumes one unit of quota for apiKey.
// The conditional UPDATE is the decision; the follow-up read only labels a refusal.
func (s *KeyStore) Consume(ctx context.Context, apiKey string) (quota.Outcome, error) {
	if apiKey == "" {
		return quota.KeyNotFound, nil
	}

	now := s.now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys
		SET usage_count = usage_count + 1,
			lifetime_count = lifetime_count + 1,
			last_used_at = ?
		WHERE key = ? AND enabled = 1 AND usage_count < ?
	`, now, apiKey, s.ceiling)
	if err != nil {
		return 0, fmt.Errorf("consume quota: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("consume quota: %w", err)
	}
	if n == 1 {
		return quota.Allowed, nil
	}

	var rec key.Record
	err = s.db.QueryRowContext(ctx, `
		SELECT usage_count, enabled FROM api_keys WHERE key = ?
	`, apiKey).Scan(&rec.UsageCount, &rec.Enabled)
	if errors.Is(err, sql.ErrNoRows) {
		return quota.KeyNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("classify refusal: %w", err)
	}

	outcome := quota.Decide(&rec, s.ceiling)
	if outcome == quota.Allowed {
		// Counter was reset between the update and the read; the request was still refused.
		outcome = quota.Denied
	}
	return outcome, nil
}

// ResetUsage zeroes every non-zero usage counter.
func (s *KeyStore) ResetUsage(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET usage_count = 0 WHERE usage_count != 0
	`)
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}
	return result.RowsAffected()
}

// Get retrieves a key record.
func (s *KeyStore) Get(ctx context.Context, apiKey string) (key.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT key, usage_count, lifetime_count, enabled, created_at, last_used_at
		FROM api_keys
		WHERE key = ?
	`, apiKey)

	var rec key.Record
	var lastUsed sql.NullTime
	err := row.Scan(&rec.Key, &rec.UsageCount, &rec.LifetimeCount, &rec.Enabled, &rec.CreatedAt, &lastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return key.Record{}, ErrNotFound
	}
	if err != nil {
		return key.Record{}, fmt.Errorf("get key: %w", err)
	}
	if lastUsed.Valid {
		rec.LastUsedAt = &lastUsed.Time
	}
	return rec, nil
}

// Create stores a new key record.
func (s *KeyStore) Create(ctx context.Context, rec key.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_keys (key, usage_count, lifetime_count, enabled, created_at, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.Key, rec.UsageCount, rec.LifetimeCount, rec.Enabled, createdAt, nullTime(rec.LastUsedAt))
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

// SetEnabled enables or disables a key.
func (s *KeyStore) SetEnabled(ctx context.Context, apiKey string, enabled bool) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE api_keys SET enabled = ? WHERE key = ?
	`, enabled, apiKey)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// nullTime converts a *time.Time to sql.NullTime.
func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// Ensure interface compliance.
var _ ports.KeyLedger = (*KeyStore)(nil)
