// Package quota provides pure functions for quota enforcement.
// All functions are deterministic with no side effects.
package quota

import (
	"time"

	"github.com/artpar/bazaargate/domain/key"
)

// Ceiling is the maximum usage count permitted within one reset window.
const Ceiling int64 = 500

// DefaultResetInterval is how often usage counters are zeroed.
const DefaultResetInterval = 600 * time.Second

// Outcome is the result of consuming one unit of quota.
type Outcome int

const (
	Allowed     Outcome = iota // unit consumed, counters incremented
	Denied                     // usage already at the ceiling
	KeyNotFound                // no record for the key
	KeyDisabled                // record exists but is disabled
)

// String returns the string representation of an outcome.
func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	case KeyNotFound:
		return "key_not_found"
	case KeyDisabled:
		return "key_disabled"
	default:
		return "unknown"
	}
}

// Decide determines the consume outcome for a record.
// rec is nil when no record exists for the key.
// This is a PURE function; callers must apply it atomically with the increment.
func Decide(rec *key.Record, ceiling int64) Outcome {
	switch {
	case rec == nil:
		return KeyNotFound
	case !rec.Enabled:
		return KeyDisabled
	case rec.UsageCount >= ceiling:
		return Denied
	default:
		return Allowed
	}
}

// Apply returns the record after consuming one unit.
// Counters change only when the outcome is Allowed.
// This is a PURE function.
func Apply(rec key.Record, outcome Outcome, now time.Time) key.Record {
	if outcome != Allowed {
		return rec
	}
	rec.UsageCount++
	rec.LifetimeCount++
	rec.LastUsedAt = &now
	return rec
}

// Remaining returns how many units are left in the current window.
// This is a PURE function.
func Remaining(rec key.Record, ceiling int64) int64 {
	if rec.UsageCount >= ceiling {
		return 0
	}
	return ceiling - rec.UsageCount
}

// Reset returns the record with its usage counter zeroed.
// Lifetime count and enabled state are untouched.
// This is a PURE function.
func Reset(rec key.Record) key.Record {
	rec.UsageCount = 0
	return rec
}
