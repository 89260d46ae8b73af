package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/mzalendo/hotspot-billing/internal/model"
)

// SessionRepo provides data access to the user_sessions table.  The
// single-active-session invariant (at most one active session per
// transaction) is enforced by the billing engine, which always calls
// DeactivateForTransactionTx and CreateTx inside the same database
// transaction.  All timestamps are stored in UTC.
type SessionRepo struct {
    db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

const sessionColumns = `id, transaction_id, device_id, ip_address, is_active, created_at, updated_at`

func scanSession(row interface{ Scan(dest ...any) error }) (*model.UserSession, error) {
    var s model.UserSession
    var ip sql.NullString
    if err := row.Scan(&s.ID, &s.TransactionID, &s.DeviceID, &ip, &s.IsActive,
        &s.CreatedAt, &s.UpdatedAt); err != nil {
        return nil, err
    }
    if ip.Valid {
        v := ip.String
        s.IPAddress = &v
    }
    return &s, nil
}

// CreateTx inserts a new session row within the provided database
// transaction and populates the generated ID.  The caller must commit
// or roll back.
func (r *SessionRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.UserSession) error {
    const q = `INSERT INTO user_sessions
               (transaction_id, device_id, ip_address, is_active, created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?)`
    var ip any
    if s.IPAddress != nil {
        ip = *s.IPAddress
    }
    result, err := tx.ExecContext(ctx, q, s.TransactionID, s.DeviceID, ip,
        s.IsActive, s.CreatedAt.UTC(), s.UpdatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    s.ID = uint64(id)
    return nil
}

// GetTx returns the session with the given ID, read inside the provided
// database transaction.  ErrSessionNotFound is returned when no such
// row exists.
func (r *SessionRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.UserSession, error) {
    const q = `SELECT ` + sessionColumns + ` FROM user_sessions WHERE id = ?`
    s, err := scanSession(tx.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }
    return s, nil
}

// DeactivateForTransactionTx clears is_active on every session of the
// given transaction and returns how many rows changed.  Invoked when a
// session is opened (deactivate-all-then-activate-one), when a
// transaction reaches FAILED or EXPIRED, and by the sweeper.
func (r *SessionRepo) DeactivateForTransactionTx(ctx context.Context, tx *sql.Tx, transactionID uint64, now time.Time) (int64, error) {
    const q = `UPDATE user_sessions SET is_active = ?, updated_at = ?
               WHERE transaction_id = ? AND is_active = ?`
    result, err := tx.ExecContext(ctx, q, false, now.UTC(), transactionID, true)
    if err != nil {
        return 0, err
    }
    return result.RowsAffected()
}

// DeactivateTx clears is_active on a single session.
func (r *SessionRepo) DeactivateTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
    const q = `UPDATE user_sessions SET is_active = ?, updated_at = ? WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, false, now.UTC(), id)
    return err
}

// TouchTx bumps updated_at on a session.  Every validity check stamps
// the session so operators can see when a device was last seen.
func (r *SessionRepo) TouchTx(ctx context.Context, tx *sql.Tx, id uint64, now time.Time) error {
    const q = `UPDATE user_sessions SET updated_at = ? WHERE id = ?`
    _, err := tx.ExecContext(ctx, q, now.UTC(), id)
    return err
}

// ActiveByDeviceTx returns the active session for a device, read
// inside the provided database transaction so the lookup and any
// expiry cascade share one unit of work.  The (device_id, is_active)
// index makes this the fast "is this device already sessioned" lookup
// used by the portal.  ErrSessionNotFound is returned when the device
// holds no active session.
func (r *SessionRepo) ActiveByDeviceTx(ctx context.Context, tx *sql.Tx, deviceID string) (*model.UserSession, error) {
    const q = `SELECT ` + sessionColumns + ` FROM user_sessions
               WHERE device_id = ? AND is_active = ?
               ORDER BY updated_at DESC LIMIT 1`
    s, err := scanSession(tx.QueryRowContext(ctx, q, deviceID, true))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrSessionNotFound
    }
    if err != nil {
        return nil, err
    }
    return s, nil
}
