package billing

import (
    "context"
    "database/sql"

    "github.com/mzalendo/hotspot-billing/internal/model"
    "github.com/mzalendo/hotspot-billing/internal/repository"
)

// Enforcer owns session state.  It guarantees that at most one session
// per transaction is active at any instant (deactivate-all-then-
// activate-one inside a single database transaction) and that session
// validity always mirrors transaction validity: any check that finds
// the owning transaction expired deactivates the session and cascades
// the transaction to EXPIRED.
type Enforcer struct {
    db       *sql.DB
    txRepo   *repository.TransactionRepo
    sessions *repository.SessionRepo
    clock    Clock
    events   EventPublisher
}

// NewEnforcer constructs an Enforcer.  events may be nil to disable
// outward notifications; everything else must be non-nil.
func NewEnforcer(db *sql.DB, txRepo *repository.TransactionRepo, sessions *repository.SessionRepo, clock Clock, events EventPublisher) *Enforcer {
    if db == nil || txRepo == nil || sessions == nil || clock == nil {
        panic("nil dependency passed to NewEnforcer")
    }
    return &Enforcer{db: db, txRepo: txRepo, sessions: sessions, clock: clock, events: events}
}

// OpenSession authenticates a device against a transaction.  The
// transaction must be SUCCESSFUL after the lazy expiry check;
// otherwise ErrTransactionNotActive is returned.  All sibling sessions
// of the transaction are deactivated and the new session is created
// active, in one database transaction, so there is no window in which
// two sessions for the same transaction are simultaneously active.
func (e *Enforcer) OpenSession(ctx context.Context, transactionID uint64, deviceID string, ip *string) (*model.UserSession, error) {
    now := e.clock.Now()

    tx, err := e.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := e.txRepo.GetTx(ctx, tx, transactionID)
    if err != nil {
        return nil, err
    }
    flipped, closed, err := expireStaleTx(ctx, tx, e.txRepo, e.sessions, t, now)
    if err != nil {
        return nil, err
    }
    if flipped {
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        committed = true
        if e.events != nil {
            e.events.AccessRevoked(ctx, t, closed)
        }
        return nil, ErrTransactionNotActive
    }
    if t.Status != model.TxSuccessful {
        return nil, ErrTransactionNotActive
    }

    if _, err := e.sessions.DeactivateForTransactionTx(ctx, tx, t.ID, now); err != nil {
        return nil, err
    }
    s := &model.UserSession{
        TransactionID: t.ID,
        DeviceID:      deviceID,
        IPAddress:     ip,
        IsActive:      true,
        CreatedAt:     now,
        UpdatedAt:     now,
    }
    if err := e.sessions.CreateTx(ctx, tx, s); err != nil {
        return nil, err
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    if e.events != nil {
        e.events.SessionOpened(ctx, s)
    }
    return s, nil
}

// IsValid reports whether a session still grants access.  An inactive
// session is invalid immediately.  An active session whose owning
// transaction has expired is deactivated, the transaction is cascaded
// to EXPIRED (idempotent with the lazy check in Lifecycle.Get), and
// false is returned.  A valid check stamps the session's updated_at so
// the device's last-seen time stays current.
func (e *Enforcer) IsValid(ctx context.Context, sessionID uint64) (bool, error) {
    now := e.clock.Now()

    tx, err := e.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    s, err := e.sessions.GetTx(ctx, tx, sessionID)
    if err != nil {
        return false, err
    }
    if !s.IsActive {
        return false, nil
    }

    t, err := e.txRepo.GetTx(ctx, tx, s.TransactionID)
    if err != nil {
        return false, err
    }
    if t.Status == model.TxSuccessful && t.ExpiresAt != nil && !t.ExpiresAt.Before(now) {
        if err := e.sessions.TouchTx(ctx, tx, s.ID, now); err != nil {
            return false, err
        }
        if err := tx.Commit(); err != nil {
            return false, err
        }
        committed = true
        return true, nil
    }

    // Transaction expired or otherwise no longer valid: cascade.
    flipped, closed, err := expireStaleTx(ctx, tx, e.txRepo, e.sessions, t, now)
    if err != nil {
        return false, err
    }
    if !flipped {
        // Not a lazy-expiry case (e.g. transaction already terminal
        // with this session somehow left active): close this session.
        if err := e.sessions.DeactivateTx(ctx, tx, s.ID, now); err != nil {
            return false, err
        }
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    if flipped && e.events != nil {
        e.events.AccessRevoked(ctx, t, closed)
    }
    return false, nil
}

// DeactivateForTransaction clears is_active on every session of the
// given transaction in its own database transaction.  It backs the
// explicit cascade from Lifecycle and the sweeper, and is exposed for
// operators who need to cut a grant's devices off directly.
func (e *Enforcer) DeactivateForTransaction(ctx context.Context, transactionID uint64) (int64, error) {
    now := e.clock.Now()

    tx, err := e.db.BeginTx(ctx, nil)
    if err != nil {
        return 0, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()
    closed, err := e.sessions.DeactivateForTransactionTx(ctx, tx, transactionID, now)
    if err != nil {
        return 0, err
    }
    if err := tx.Commit(); err != nil {
        return 0, err
    }
    committed = true
    return closed, nil
}

// ActiveSessionForDevice returns the device's current active session,
// if any.  Like every other read, it consults the owning transaction
// first: a lookup that finds the transaction expired deactivates the
// session, cascades the transaction to EXPIRED and reports
// repository.ErrSessionNotFound, so the hotspot controller never
// reassociates a device on a lapsed grant.
func (e *Enforcer) ActiveSessionForDevice(ctx context.Context, deviceID string) (*model.UserSession, error) {
    now := e.clock.Now()

    tx, err := e.db.BeginTx(ctx, nil)
    if err != nil {
        return nil, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    s, err := e.sessions.ActiveByDeviceTx(ctx, tx, deviceID)
    if err != nil {
        return nil, err
    }
    t, err := e.txRepo.GetTx(ctx, tx, s.TransactionID)
    if err != nil {
        return nil, err
    }
    if t.Status == model.TxSuccessful && t.ExpiresAt != nil && !t.ExpiresAt.Before(now) {
        if err := tx.Commit(); err != nil {
            return nil, err
        }
        committed = true
        return s, nil
    }

    // Transaction expired or otherwise no longer valid: cascade, same
    // as a failed validity check.
    flipped, closed, err := expireStaleTx(ctx, tx, e.txRepo, e.sessions, t, now)
    if err != nil {
        return nil, err
    }
    if !flipped {
        if err := e.sessions.DeactivateTx(ctx, tx, s.ID, now); err != nil {
            return nil, err
        }
    }
    if err := tx.Commit(); err != nil {
        return nil, err
    }
    committed = true
    if flipped && e.events != nil {
        e.events.AccessRevoked(ctx, t, closed)
    }
    return nil, repository.ErrSessionNotFound
}
