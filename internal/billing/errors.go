package billing

import "errors"

// ErrInvalidDurationUnit is returned by ComputeExpiry when the
// package's duration unit is outside the enumerated set.  It signals a
// misconfigured package and is never silently defaulted.
var ErrInvalidDurationUnit = errors.New("invalid duration unit")

// ErrInvalidTransition is returned when a caller attempts to move a
// transaction out of a terminal state (FAILED or EXPIRED), or to apply
// a confirmation that the state machine does not permit.  Clients
// should not retry.
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrTransactionNotActive is returned when a session is opened against
// a transaction that is not currently SUCCESSFUL (after the lazy
// expiry check has run).
var ErrTransactionNotActive = errors.New("transaction not active")

// ErrPackageNotActive is returned when a payment is initiated against
// a package that is no longer offered for sale.
var ErrPackageNotActive = errors.New("package not active")
