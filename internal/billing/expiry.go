// Package billing implements the transaction/session lifecycle and
// expiry engine behind the captive portal: the status state machine
// for transactions, the single-active-session invariant for device
// sessions, and the periodic sweep that expires stale access grants.
// All state transitions run inside a single database transaction per
// operation, guarded by compare-and-swap UPDATEs on the status column.
package billing

import (
    "time"

    "github.com/mzalendo/hotspot-billing/internal/model"
)

// ComputeExpiry maps a package duration and a start instant to the
// absolute expiry instant.  MINUTES, HOURS and DAYS add that unit
// directly; MONTHS is a fixed 30-day block per unit, deliberately not
// calendar-aware, so MONTHS(n) always equals DAYS(30*n).  It is pure
// and deterministic: same inputs, same output.  An unknown unit yields
// ErrInvalidDurationUnit.
func ComputeExpiry(value uint32, unit model.DurationUnit, start time.Time) (time.Time, error) {
    d := time.Duration(value)
    switch unit {
    case model.DurationMinutes:
        return start.Add(d * time.Minute), nil
    case model.DurationHours:
        return start.Add(d * time.Hour), nil
    case model.DurationDays:
        return start.Add(d * 24 * time.Hour), nil
    case model.DurationMonths:
        return start.Add(d * 30 * 24 * time.Hour), nil
    default:
        return time.Time{}, ErrInvalidDurationUnit
    }
}
