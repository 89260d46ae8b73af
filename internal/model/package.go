package model

import "time"

// DurationUnit enumerates the units a package duration may be
// expressed in.  The billing engine converts a (value, unit) pair
// into an absolute expiry instant when a payment is confirmed.
// MONTHS is a fixed 30-day block, not a calendar month.
type DurationUnit string

const (
    DurationMinutes DurationUnit = "MINUTES" // duration counted in minutes
    DurationHours   DurationUnit = "HOURS"   // duration counted in hours
    DurationDays    DurationUnit = "DAYS"    // duration counted in days
    DurationMonths  DurationUnit = "MONTHS"  // fixed 30-day blocks
)

// Valid reports whether the unit is one of the enumerated values.
func (u DurationUnit) Valid() bool {
    switch u {
    case DurationMinutes, DurationHours, DurationDays, DurationMonths:
        return true
    }
    return false
}

// Package represents a purchasable access plan as stored in the
// `packages` table.  Packages are created and edited by catalog
// management; the billing core only ever reads them.  Price or
// active-flag edits never retroactively affect transactions that
// already reference the package.
//
// Fields:
//  ID             – primary key identifier.
//  Name           – unique display name of the plan.
//  PriceCents     – price in cents.
//  DurationValue  – positive number of duration units purchased.
//  DurationUnit   – unit the duration is expressed in.
//  BandwidthLimit – optional bandwidth cap label (e.g. "5Mbps"), empty when unlimited.
//  MaxDevices     – how many devices may use the plan concurrently (>= 1).
//  IsActive       – whether the package is currently purchasable.
//  CreatedAt      – timestamp of creation.
//  UpdatedAt      – timestamp of last update.
type Package struct {
    ID             uint64       // packages.id
    Name           string       // packages.name
    PriceCents     uint32       // packages.price_cents
    DurationValue  uint32       // packages.duration_value
    DurationUnit   DurationUnit // packages.duration_unit
    BandwidthLimit string       // packages.bandwidth_limit (empty = unlimited)
    MaxDevices     uint32       // packages.max_devices
    IsActive       bool         // packages.is_active
    CreatedAt      time.Time    // packages.created_at
    UpdatedAt      time.Time    // packages.updated_at
}
