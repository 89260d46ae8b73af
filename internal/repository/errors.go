// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// billing engine and handlers to distinguish between different failure
// scenarios without inspecting driver-specific errors. For example,
// ErrDuplicateReceipt signals that a mobile-money receipt number is
// already recorded on another transaction.
package repository

import "errors"

// ErrPackageNotFound is returned when a package lookup matches no row.
var ErrPackageNotFound = errors.New("package not found")

// ErrTransactionNotFound is returned when a transaction lookup matches
// no row.
var ErrTransactionNotFound = errors.New("transaction not found")

// ErrSessionNotFound is returned when a user session lookup matches no
// row.
var ErrSessionNotFound = errors.New("session not found")

// ErrDuplicateReceipt is returned when an insert or update would record
// a receipt number that already exists on a different transaction.
// Receipts are unique across all transactions; callers should treat
// this as a conflict and retry with idempotency awareness.
var ErrDuplicateReceipt = errors.New("duplicate receipt")
