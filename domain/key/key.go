// Package key provides API key record value types and pure functions.
// This package has NO dependencies on I/O.
package key

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record is the quota and identity record for one issued API key (value type).
// Key is the shared secret clients present; it is also the lookup identity.
type Record struct {
	Key           string
	UsageCount    int64 // units consumed in the current reset window
	LifetimeCount int64 // never decreases
	Enabled       bool  // disabled keys are recognized but rejected
	CreatedAt     time.Time
	LastUsedAt    *time.Time
}

// DefaultPrefix is prepended to generated keys.
const DefaultPrefix = "bz_"

// Generate creates a new enabled record with a random key.
// The raw key is prefix + 32 lowercase hex chars.
func Generate(prefix string, now time.Time) Record {
	raw := prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	return Record{
		Key:       raw,
		Enabled:   true,
		CreatedAt: now.UTC(),
	}
}

// WithEnabled returns a copy of the record with Enabled set.
func (r Record) WithEnabled(enabled bool) Record {
	r.Enabled = enabled
	return r
}

// WithUsage returns a copy of the record with the usage and lifetime counters set.
func (r Record) WithUsage(usage, lifetime int64) Record {
	r.UsageCount = usage
	r.LifetimeCount = lifetime
	return r
}

// Mask returns the key with all but the first and last four characters hidden.
// Used when keys appear in logs.
func Mask(k string) string {
	if len(k) <= 8 {
		return strings.Repeat("*", len(k))
	}
	return k[:4] + strings.Repeat("*", len(k)-8) + k[len(k)-4:]
}
