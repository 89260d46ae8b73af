package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/mzalendo/hotspot-billing/internal/model"
)

// TransactionRepo provides data access to the transactions table.  All
// state-changing methods operate inside a caller-supplied *sql.Tx and
// use status-guarded UPDATEs (compare-and-swap on the status column) so
// that two concurrent callers can never both apply the same
// transition.  All timestamps are stored and compared in UTC.
type TransactionRepo struct {
    db *sql.DB
}

// NewTransactionRepo returns a new TransactionRepo bound to the given database.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

const txColumns = `id, package_id, device_id, receipt, amount_cents, status,
       failure_reason, initiated_at, paid_at, expires_at`

func scanTransaction(row interface{ Scan(dest ...any) error }) (*model.Transaction, error) {
    var t model.Transaction
    var receipt, reason sql.NullString
    var paidAt, expiresAt sql.NullTime
    if err := row.Scan(&t.ID, &t.PackageID, &t.DeviceID, &receipt, &t.AmountCents,
        &t.Status, &reason, &t.InitiatedAt, &paidAt, &expiresAt); err != nil {
        return nil, err
    }
    if receipt.Valid {
        v := receipt.String
        t.Receipt = &v
    }
    if reason.Valid {
        v := reason.String
        t.FailureReason = &v
    }
    if paidAt.Valid {
        v := paidAt.Time.UTC()
        t.PaidAt = &v
    }
    if expiresAt.Valid {
        v := expiresAt.Time.UTC()
        t.ExpiresAt = &v
    }
    return &t, nil
}

// receiptTakenTx reports whether some other transaction already holds
// the given receipt.  The schema also carries a unique index on the
// receipt column as a backstop; this check exists so the caller gets a
// portable sentinel error instead of a driver-specific one.
func (r *TransactionRepo) receiptTakenTx(ctx context.Context, tx *sql.Tx, receipt string, excludeID uint64) (bool, error) {
    const q = `SELECT COUNT(*) FROM transactions WHERE receipt = ? AND id <> ?`
    var n int
    if err := tx.QueryRowContext(ctx, q, receipt, excludeID).Scan(&n); err != nil {
        return false, err
    }
    return n > 0, nil
}

// CreateTx inserts a new PENDING transaction within the provided
// database transaction and populates the generated ID on the record.
// When the record carries a receipt that another transaction already
// holds, ErrDuplicateReceipt is returned and nothing is inserted.  The
// caller must commit or roll back.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, rec *model.Transaction) error {
    if rec.Receipt != nil {
        taken, err := r.receiptTakenTx(ctx, tx, *rec.Receipt, 0)
        if err != nil {
            return err
        }
        if taken {
            return ErrDuplicateReceipt
        }
    }
    const q = `INSERT INTO transactions
               (package_id, device_id, receipt, amount_cents, status, initiated_at)
               VALUES (?, ?, ?, ?, ?, ?)`
    var receipt any
    if rec.Receipt != nil {
        receipt = *rec.Receipt
    }
    result, err := tx.ExecContext(ctx, q, rec.PackageID, rec.DeviceID, receipt,
        rec.AmountCents, rec.Status, rec.InitiatedAt.UTC())
    if err != nil {
        return err
    }
    id, err := result.LastInsertId()
    if err != nil {
        return err
    }
    rec.ID = uint64(id)
    return nil
}

// GetTx returns the transaction with the given ID, read inside the
// provided database transaction.  ErrTransactionNotFound is returned
// when no such row exists.
func (r *TransactionRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Transaction, error) {
    const q = `SELECT ` + txColumns + ` FROM transactions WHERE id = ?`
    t, err := scanTransaction(tx.QueryRowContext(ctx, q, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTransactionNotFound
    }
    if err != nil {
        return nil, err
    }
    return t, nil
}

// ConfirmSuccessTx applies a successful gateway confirmation: it moves
// the transaction out of PENDING into the given status (SUCCESSFUL, or
// EXPIRED when the computed expiry already lies in the past), records
// the receipt and paid/expiry instants, and clears any failure reason.
// The UPDATE is guarded on status = PENDING; false is returned when the
// transaction was not PENDING anymore, in which case nothing changed.
// ErrDuplicateReceipt is returned when the receipt belongs to another
// transaction.
func (r *TransactionRepo) ConfirmSuccessTx(ctx context.Context, tx *sql.Tx, id uint64, status string, receipt *string, paidAt, expiresAt time.Time) (bool, error) {
    if receipt != nil {
        taken, err := r.receiptTakenTx(ctx, tx, *receipt, id)
        if err != nil {
            return false, err
        }
        if taken {
            return false, ErrDuplicateReceipt
        }
    }
    const q = `UPDATE transactions
               SET status = ?, receipt = COALESCE(?, receipt), paid_at = ?, expires_at = ?, failure_reason = NULL
               WHERE id = ? AND status = ?`
    var rc any
    if receipt != nil {
        rc = *receipt
    }
    result, err := tx.ExecContext(ctx, q, status, rc, paidAt.UTC(), expiresAt.UTC(), id, model.TxPending)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// ConfirmFailureTx moves a PENDING transaction to FAILED and records
// the gateway's failure reason.  The UPDATE is guarded on status =
// PENDING; false is returned when the guard did not match.
func (r *TransactionRepo) ConfirmFailureTx(ctx context.Context, tx *sql.Tx, id uint64, reason string) (bool, error) {
    const q = `UPDATE transactions SET status = ?, failure_reason = ?
               WHERE id = ? AND status = ?`
    result, err := tx.ExecContext(ctx, q, model.TxFailed, reason, id, model.TxPending)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// MarkExpiredTx flips a SUCCESSFUL transaction to EXPIRED.  The UPDATE
// is guarded on status = SUCCESSFUL so concurrent lazy-expiry checks
// and the sweeper cannot both apply the transition; false means some
// other caller got there first (or the transaction was never
// SUCCESSFUL) and nothing changed.
func (r *TransactionRepo) MarkExpiredTx(ctx context.Context, tx *sql.Tx, id uint64) (bool, error) {
    const q = `UPDATE transactions SET status = ? WHERE id = ? AND status = ?`
    result, err := tx.ExecContext(ctx, q, model.TxExpired, id, model.TxSuccessful)
    if err != nil {
        return false, err
    }
    n, err := result.RowsAffected()
    if err != nil {
        return false, err
    }
    return n == 1, nil
}

// ListExpiredIDs returns the IDs of every SUCCESSFUL transaction whose
// expiry instant lies strictly before now.  The sweeper uses this to
// select its batch; the (status, expires_at) index keeps the scan
// cheap.  Results are capped at limit when limit > 0.
func (r *TransactionRepo) ListExpiredIDs(ctx context.Context, now time.Time, limit int) ([]uint64, error) {
    q := `SELECT id FROM transactions WHERE status = ? AND expires_at < ? ORDER BY expires_at`
    args := []any{model.TxSuccessful, now.UTC()}
    if limit > 0 {
        q += ` LIMIT ?`
        args = append(args, limit)
    }
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []uint64
    for rows.Next() {
        var id uint64
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return ids, nil
}
