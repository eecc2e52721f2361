// Package ports defines interfaces (contracts) between layers.
// These interfaces enable dependency injection and testability.
// Implementations live in adapters/.
package ports

//go:generate mockgen -destination=mocks/mocks.go -package=mocks . Clock,SnapshotStore,KeyLedger

import (
	"context"
	"errors"
	"time"

	"github.com/artpar/bazaargate/domain/key"
	"github.com/artpar/bazaargate/domain/product"
	"github.com/artpar/bazaargate/domain/quota"
)

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// -----------------------------------------------------------------------------
// Infrastructure Ports
// -----------------------------------------------------------------------------

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

// -----------------------------------------------------------------------------
// Data Store Ports
// -----------------------------------------------------------------------------

// SnapshotStore reads product snapshots from the time-series store.
// Implementations never mutate snapshots.
type SnapshotStore interface {
	// Latest returns the snapshot with the greatest timestamp for productID.
	// Equal timestamps are ordered by insertion, newest first.
	// Returns ErrNotFound if the product has no snapshots.
	Latest(ctx context.Context, productID string) (product.Snapshot, error)

	// History returns up to limit snapshots for productID, newest first.
	// A limit of zero returns an empty slice.
	History(ctx context.Context, productID string, limit int) ([]product.Snapshot, error)
}

// KeyLedger persists API key records and their quota counters.
type KeyLedger interface {
	// Consume atomically checks the key against the ceiling and, when allowed,
	// increments its usage and lifetime counters by one.
	// The returned error is non-nil only for store failures.
	Consume(ctx context.Context, apiKey string) (quota.Outcome, error)

	// ResetUsage zeroes the usage counter of every key with non-zero usage.
	// Returns the number of keys changed.
	ResetUsage(ctx context.Context) (int64, error)

	// Get retrieves a key record. Returns ErrNotFound if missing.
	Get(ctx context.Context, apiKey string) (key.Record, error)

	// Create stores a new key record.
	Create(ctx context.Context, rec key.Record) error

	// SetEnabled enables or disables a key. Returns ErrNotFound if missing.
	SetEnabled(ctx context.Context, apiKey string, enabled bool) error
}

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// Observability Ports
// -----------------------------------------------------------------------------

// Metrics receives counters from the query path and the reset scheduler.
type Metrics interface {
	QuotaDecision(outcome quota.Outcome)
	StoreError(operation string)
	SnapshotReadCoalesced()
	ResetSweep(zeroed int64, err error, at time.Time)
}
