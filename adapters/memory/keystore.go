// Package memory provides in-memory implementations for testing.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/quota"
	"github.com/artpar/bazaargate/ports"
)

// KeyStore is an in-memory implementation of ports.KeyLedger.
type KeyStore struct {
	mu      sync.Mutex
	keys    map[string]key.Record
	ceiling int64
	now     func() time.Time
}

// NewKeyStore creates a new in-memory key ledger enforcing quota.Ceiling.
func NewKeyStore() *KeyStore {
	return &KeyStore{
		keys:    make(map[string]key.Record),
		ceiling: quota.Ceiling,
		now:     time.Now,
	}
}

// WithClock sets the time source used for last-used timestamps.
func (s *KeyStore) WithClock(c ports.Clock) *KeyStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = c.Now
	return s
}

// Consume decides and applies under one lock.
func (s *KeyStore) Consume(ctx context.Context, apiKey string) (quota.Outcome, error) {
	if apiKey == "" {
		return quota.KeyNotFound, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keys[apiKey]
	if !ok {
		return quota.KeyNotFound, nil
	}

	outcome := quota.Decide(&rec, s.ceiling)
	s.keys[apiKey] = quota.Apply(rec, outcome, s.now())
	return outcome, nil
}

// ResetUsage zeroes every non-zero usage counter.
func (s *KeyStore) ResetUsage(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for k, rec := range s.keys {
		if rec.UsageCount != 0 {
			s.keys[k] = quota.Reset(rec)
			n++
		}
	}
	return n, nil
}

// Get retrieves a key record.
func (s *KeyStore) Get(ctx context.Context, apiKey string) (key.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keys[apiKey]
	if !ok {
		return key.Record{}, ports.ErrNotFound
	}
	return rec, nil
}

// Create stores a new key record, replacing any existing one.
func (s *KeyStore) Create(ctx context.Context, rec key.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[rec.Key] = rec
	return nil
}

// SetEnabled enables or disables a key.
func (s *KeyStore) SetEnabled(ctx context.Context, apiKey string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.keys[apiKey]
	if !ok {
		return ports.ErrNotFound
	}
	s.keys[apiKey] = rec.WithEnabled(enabled)
	return nil
}

// Ensure interface compliance.
var _ ports.KeyLedger = (*KeyStore)(nil)
