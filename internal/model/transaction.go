package model

import "time"

// Transaction status values.  PENDING transactions are awaiting a
// gateway callback.  SUCCESSFUL is the only state that grants
// access and the only non-terminal state after confirmation: it
// transitions to EXPIRED once the expiry instant passes.  FAILED
// and EXPIRED are terminal.
const (
    TxPending    = "PENDING"
    TxSuccessful = "SUCCESSFUL"
    TxFailed     = "FAILED"
    TxExpired    = "EXPIRED"
)

// Transaction records one mobile-money payment attempt and the
// access grant that results from it.  ExpiresAt is computed exactly
// once, when the transaction first becomes SUCCESSFUL, from the
// package duration and the paid-at instant.
//
// Fields:
//  ID            – primary key identifier.
//  PackageID     – plan this payment purchases.
//  DeviceID      – MAC-like identifier of the paying device.
//  Receipt       – mobile-money receipt number (nullable, unique when present).
//  AmountCents   – amount actually paid, in cents.
//  Status        – one of PENDING, SUCCESSFUL, FAILED, EXPIRED.
//  FailureReason – gateway-supplied reason when Status is FAILED (nullable).
//  InitiatedAt   – when the payment was initiated.
//  PaidAt        – when the gateway reports the payment completed (nullable).
//  ExpiresAt     – when access ends (nullable until first SUCCESSFUL).
type Transaction struct {
    ID            uint64     // transactions.id
    PackageID     uint64     // transactions.package_id
    DeviceID      string     // transactions.device_id
    Receipt       *string    // transactions.receipt (nullable)
    AmountCents   uint32     // transactions.amount_cents
    Status        string     // transactions.status
    FailureReason *string    // transactions.failure_reason (nullable)
    InitiatedAt   time.Time  // transactions.initiated_at
    PaidAt        *time.Time // transactions.paid_at (nullable)
    ExpiresAt     *time.Time // transactions.expires_at (nullable)
}

// Terminal reports whether the transaction has reached a state with
// no outgoing transitions.
func (t *Transaction) Terminal() bool {
    return t.Status == TxFailed || t.Status == TxExpired
}
