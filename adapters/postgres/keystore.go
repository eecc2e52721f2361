package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
	"github.com/jackc/pgx/v5"
)

// KeyStore implements ports.KeyLedger using PostgreSQL.
type KeyStore struct {
	db      *DB
	ceiling int64
	now     func() time.Time
}

// NewKeyStore creates a new PostgreSQL key ledger enforcing quota.Ceiling.
func NewKeyStore(db *DB) *KeyStore {
	return &KeyStore{db: db, ceiling: quota.Ceiling, now: time.Now}
}

// WithClock sets the time source used for last-used timestamps.
func (s *KeyStore) WithClock(c ports.Clock) *KeyStore {
	s.now = c.Now
	return s
}

// Consume atomically consumes one unit of quota for apiKey in a single round trip.
// The outer SELECT reads the pre-update row, which is enough to label a refusal.
func (s *KeyStore) Consume(ctx context.Context, apiKey string) (quota.Outcome, error) {
	if apiKey == "" {
		return quota.KeyNotFound, nil
	}

	var consumed, enabled bool
	err := s.db.Pool.QueryRow(ctx, `
		WITH upd AS (
			UPDATE api_keys
			SET usage_count = usage_count + 1,
				lifetime_count = lifetime_count + 1,
				last_used_at = $2
			WHERE key = $1 AND enabled AND usage_count < $3
			RETURNING 1
		)
		SELECT EXISTS (SELECT 1 FROM upd), k.enabled
		FROM api_keys k
		WHERE k.key = $1
	`, apiKey, s.now().UTC(), s.ceiling).Scan(&consumed, &enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return quota.KeyNotFound, nil
	}
	if err != nil {
		return 0, fmt.Errorf("consume quota: %w", err)
	}

	switch {
	case consumed:
		return quota.Allowed, nil
	case !enabled:
		return quota.KeyDisabled, nil
	default:
		return quota.Denied, nil
	}
}

// ResetUsage zeroes every non-zero usage counter.
func (s *KeyStore) ResetUsage(ctx context.Context) (int64, error) {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE api_keys SET usage_count = 0 WHERE usage_count != 0`)
	if err != nil {
		return 0, fmt.Errorf("reset usage: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Get retrieves a key record.
func (s *KeyStore) Get(ctx context.Context, apiKey string) (key.Record, error) {
	var rec key.Record
	err := s.db.Pool.QueryRow(ctx, `
		SELECT key, usage_count, lifetime_count, enabled, created_at, last_used_at
		FROM api_keys
		WHERE key = $1
	`, apiKey).Scan(&rec.Key, &rec.UsageCount, &rec.LifetimeCount, &rec.Enabled, &rec.CreatedAt, &rec.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return key.Record{}, ErrNotFound
	}
	if err != nil {
		return key.Record{}, fmt.Errorf("get key: %w", err)
	}
	return rec, nil
}

// Create stores a new key record.
func (s *KeyStore) Create(ctx context.Context, rec key.Record) error {
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now().UTC()
	}

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO api_keys (key, usage_count, lifetime_count, enabled, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Key, rec.UsageCount, rec.LifetimeCount, rec.Enabled, createdAt, rec.LastUsedAt)
	if err != nil {
		return fmt.Errorf("create key: %w", err)
	}
	return nil
}

// SetEnabled enables or disables a key.
func (s *KeyStore) SetEnabled(ctx context.Context, apiKey string, enabled bool) error {
	tag, err := s.db.Pool.Exec(ctx, `UPDATE api_keys SET enabled = $2 WHERE key = $1`, apiKey, enabled)
	if err != nil {
		return fmt.Errorf("set enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Ensure interface compliance.
var _ ports.KeyLedger = (*KeyStore)(nil)
