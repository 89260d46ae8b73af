package billing

import (
    "context"
    "database/sql"
    "time"

    "github.com/mzalendo/hotspot-billing/internal/model"
    "github.com/mzalendo/hotspot-billing/internal/repository"
)

// Outcome is the result a payment gateway callback reports for a
// transaction.
type Outcome string

const (
    OutcomeSuccess Outcome = "SUCCESS"
    OutcomeFailure Outcome = "FAILURE"
)

// Lifecycle owns transaction state.  It creates PENDING transactions,
// applies gateway confirmations, computes expiry exactly once on the
// first successful confirmation, and applies the lazy expiry-on-read
// rule: no caller can ever observe a SUCCESSFUL transaction whose
// expiry has passed.  Every operation is one database transaction.
type Lifecycle struct {
    db       *sql.DB
    packages *repository.PackageRepo
    txRepo   *repository.TransactionRepo
    sessions *repository.SessionRepo
    clock    Clock
    events   EventPublisher
}

// NewLifecycle constructs a Lifecycle.  events may be nil to disable
// outward notifications; everything else must be non-nil.
func NewLifecycle(db *sql.DB, packages *repository.PackageRepo, txRepo *repository.TransactionRepo, sessions *repository.SessionRepo, clock Clock, events EventPublisher) *Lifecycle {
    if db == nil || packages == nil || txRepo == nil || sessions == nil || clock == nil {
        panic("nil dependency passed to NewLifecycle")
    }
    return &Lifecycle{db: db, packages: packages, txRepo: txRepo, sessions: sessions, clock: clock, events: events}
}

// Initiate creates a PENDING transaction for a device buying the given
// package.  The receipt, when already known at initiation time, must
// be unique across all transactions; a duplicate fails with
// repository.ErrDuplicateReceipt.  Inactive packages cannot be bought,
// and a package whose duration unit is outside the enumerated set is
// rejected here with ErrInvalidDurationUnit rather than taking money
// for access whose expiry cannot be computed later.
func (l *Lifecycle) Initiate(ctx context.Context, packageID uint64, deviceID string, amountCents uint32, receipt *string) (*model.Transaction, error) {
    pkg, err := l.packages.GetByID(ctx, packageID)
    if err != nil {
        return nil, err
    }
    if !pkg.IsActive {
        return nil, ErrPackageNotActive
    }
    if !pkg.DurationUnit.Valid() {
        return nil, ErrInvalidDurationUnit
    }
    rec := &model.Transaction{
        PackageID:   pkg.ID,
        DeviceID:    deviceID,
        Receipt:     receipt,
        AmountCents: amountCents,
        Status:      model.TxPending,
        InitiatedAt: l.clock.Now(),
    }
    tx, err := l.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    if err := l.txRepo.CreateTx(ctx, tx, rec); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    return rec, nil
}

// ConfirmPayment applies a gateway confirmation to a PENDING
// transaction.
//
// On FAILURE the transaction moves to FAILED and the reason is
// recorded.  On SUCCESS the expiry is computed from the package
// duration with paidAt (default: the confirmation instant) as the
// start; when the computed expiry already lies in the past the
// transaction goes straight to EXPIRED – the payment arrived too late
// to grant any access.  Confirming an already-SUCCESSFUL transaction
// with SUCCESS is a no-op (the expiry is never recomputed); any other
// re-confirmation fails with ErrInvalidTransition.  Whenever the
// resulting state is FAILED or EXPIRED, all active sessions of the
// transaction are deactivated in the same database transaction.
func (l *Lifecycle) ConfirmPayment(ctx context.Context, id uint64, outcome Outcome, receipt *string, paidAt *time.Time, reason string) (*model.Transaction, error) {
    now := l.clock.Now()

    tx, err := l.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := l.txRepo.GetTx(ctx, tx, id)
    if err != nil {
        return nil, err
    }

    // Lazy expiry on read: a stale SUCCESSFUL transaction must flip to
    // EXPIRED before any decision is taken on it.
    flipped, closed, err := expireStaleTx(ctx, tx, l.txRepo, l.sessions, t, now)
    if err != nil {
        return nil, err
    }
    if flipped {
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        committed = true
        l.publishRevoked(ctx, t, closed)
        return nil, ErrInvalidTransition
    }

    switch {
    case t.Terminal():
        return nil, ErrInvalidTransition

    case t.Status == model.TxSuccessful:
        if outcome == OutcomeSuccess {
            // Gateway retried a callback we already applied.
            if err := tx.Commit(); err != nil {
                return nil, err
            }
            committed = true
            return t, nil
        }
        // SUCCESSFUL never transitions to FAILED.
        return nil, ErrInvalidTransition

    case outcome == OutcomeFailure:
        if reason == "" {
            reason = "payment failed"
        }
        ok, err := l.txRepo.ConfirmFailureTx(ctx, tx, t.ID, reason)
        if err != nil {
            return nil, err
        }
        if !ok {
            return nil, ErrInvalidTransition
        }
        closed, err := l.sessions.DeactivateForTransactionTx(ctx, tx, t.ID, now)
        if err != nil {
            return nil, err
        }
        updated, err := l.txRepo.GetTx(ctx, tx, t.ID)
        if err != nil {
            return nil, err
        }
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        committed = true
        l.publishRevoked(ctx, updated, closed)
        return updated, nil

    default: // PENDING + SUCCESS
        pkg, err := l.packages.GetByIDTx(ctx, tx, t.PackageID)
        if err != nil {
            return nil, err
        }
        start := now
        if paidAt != nil {
            start = paidAt.UTC()
        }
        expiresAt, err := ComputeExpiry(pkg.DurationValue, pkg.DurationUnit, start)
        if err != nil {
            return nil, err
        }
        status := model.TxSuccessful
        if expiresAt.Before(now) {
            // Confirmed too late to grant access.  Strictly before:
            // an expiry landing exactly on the confirmation instant is
            // still inside the window, matching the lazy checks.
            status = model.TxExpired
        }
        ok, err := l.txRepo.ConfirmSuccessTx(ctx, tx, t.ID, status, receipt, start, expiresAt)
        if err != nil {
            return nil, err
        }
        if !ok {
            // A concurrent caller applied a transition first.
            return nil, ErrInvalidTransition
        }
        var closed int64
        if status == model.TxExpired {
            closed, err = l.sessions.DeactivateForTransactionTx(ctx, tx, t.ID, now)
            if err != nil {
                return nil, err
            }
        }
        updated, err := l.txRepo.GetTx(ctx, tx, t.ID)
        if err != nil {
            return nil, err
        }
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        committed = true
        if status == model.TxExpired {
            l.publishRevoked(ctx, updated, closed)
        }
        return updated, nil
    }
}

// Get returns a transaction by ID, applying the lazy expiry rule: when
// the row is SUCCESSFUL but its expiry has passed, it is flipped to
// EXPIRED and its sessions are deactivated before the transaction is
// returned.  The flip is persisted even though Get is a read.
func (l *Lifecycle) Get(ctx context.Context, id uint64) (*model.Transaction, error) {
    now := l.clock.Now()

    tx, err := l.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := l.txRepo.GetTx(ctx, tx, id)
    if err != nil {
        return nil, err
    }
    flipped, closed, err := expireStaleTx(ctx, tx, l.txRepo, l.sessions, t, now)
    if err != nil {
        return nil, err
    }
    if flipped {
        t, err = l.txRepo.GetTx(ctx, tx, id)
        if err != nil {
            return nil, err
        }
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    if flipped {
        l.publishRevoked(ctx, t, closed)
    }
    return t, nil
}

func (l *Lifecycle) publishRevoked(ctx context.Context, t *model.Transaction, closed int64) {
    if l.events != nil {
        l.events.AccessRevoked(ctx, t, closed)
    }
}

// expireStaleTx applies the lazy expiry transition inside an open
// database transaction: when t is SUCCESSFUL and its expiry lies
// strictly before now, the status is flipped to EXPIRED (guarded on
// status = SUCCESSFUL, so concurrent checkers cannot both win) and all
// active sessions of the transaction are deactivated.  It reports
// whether this caller applied the flip and how many sessions it
// closed.  The caller owns commit/rollback and fires the outward
// event after commit.
func expireStaleTx(ctx context.Context, tx *sql.Tx, txRepo *repository.TransactionRepo, sessions *repository.SessionRepo, t *model.Transaction, now time.Time) (bool, int64, error) {
    if t.Status != model.TxSuccessful || t.ExpiresAt == nil || !t.ExpiresAt.Before(now) {
        return false, 0, nil
    }
    ok, err := txRepo.MarkExpiredTx(ctx, tx, t.ID)
    if err != nil {
        return false, 0, err
    }
    if !ok {
        // Lost the race; the winner handles the cascade.
        t.Status = model.TxExpired
        return false, 0, nil
    }
    closed, err := sessions.DeactivateForTransactionTx(ctx, tx, t.ID, now)
    if err != nil {
        return false, 0, err
    }
    t.Status = model.TxExpired
    return true, closed, nil
}
