package billing

import (
    "context"
    "database/sql"
    "fmt"
    "sync"
    "sync/atomic"
    "testing"
    "time"

    "github.com/stretchr/testify/require"
    _ "modernc.org/sqlite"

    "github.com/mzalendo/hotspot-billing/internal/model"
    "github.com/mzalendo/hotspot-billing/internal/repository"
)

// The engine is tested against an in-memory SQLite database.  The
// repositories keep their SQL portable (placeholders, times passed as
// arguments) precisely so the same queries run on MySQL in production
// and on SQLite here.

var dbSeq int64

func setupDB(t *testing.T) *sql.DB {
    t.Helper()
    name := fmt.Sprintf("file:billing_test_%d?mode=memory&cache=shared", atomic.AddInt64(&dbSeq, 1))
    db, err := sql.Open("sqlite", name)
    require.NoError(t, err)
    db.SetMaxOpenConns(4)
    db.SetMaxIdleConns(4)
    t.Cleanup(func() { _ = db.Close() })

    const schema = `
CREATE TABLE packages (
    id              INTEGER PRIMARY KEY AUTOINCREMENT,
    name            TEXT     NOT NULL UNIQUE,
    price_cents     INTEGER  NOT NULL,
    duration_value  INTEGER  NOT NULL,
    duration_unit   TEXT     NOT NULL,
    bandwidth_limit TEXT     NOT NULL DEFAULT '',
    max_devices     INTEGER  NOT NULL DEFAULT 1,
    is_active       BOOLEAN  NOT NULL DEFAULT 1,
    created_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE transactions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    package_id     INTEGER  NOT NULL REFERENCES packages (id),
    device_id      TEXT     NOT NULL,
    receipt        TEXT     UNIQUE,
    amount_cents   INTEGER  NOT NULL,
    status         TEXT     NOT NULL DEFAULT 'PENDING',
    failure_reason TEXT,
    initiated_at   DATETIME NOT NULL,
    paid_at        DATETIME,
    expires_at     DATETIME
);
CREATE TABLE user_sessions (
    id             INTEGER PRIMARY KEY AUTOINCREMENT,
    transaction_id INTEGER  NOT NULL REFERENCES transactions (id),
    device_id      TEXT     NOT NULL,
    ip_address     TEXT,
    is_active      BOOLEAN  NOT NULL DEFAULT 0,
    created_at     DATETIME NOT NULL,
    updated_at     DATETIME NOT NULL
);`
    _, err = db.Exec(schema)
    require.NoError(t, err)
    return db
}

// fakeClock is a manual clock; tests advance it instead of sleeping.
type fakeClock struct {
    mu  sync.Mutex
    now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now.UTC()} }

func (c *fakeClock) Now() time.Time {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.now = c.now.Add(d)
}

// recordingEvents captures published events so tests can assert the
// outward notifications without a broker.
type recordingEvents struct {
    mu      sync.Mutex
    revoked []revokedEvent
    opened  []uint64
}

type revokedEvent struct {
    transactionID uint64
    status        string
    closed        int64
}

func (r *recordingEvents) AccessRevoked(_ context.Context, t *model.Transaction, closed int64) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.revoked = append(r.revoked, revokedEvent{transactionID: t.ID, status: t.Status, closed: closed})
}

func (r *recordingEvents) SessionOpened(_ context.Context, s *model.UserSession) {
    r.mu.Lock()
    defer r.mu.Unlock()
    r.opened = append(r.opened, s.ID)
}

func (r *recordingEvents) revokedCount() int {
    r.mu.Lock()
    defer r.mu.Unlock()
    return len(r.revoked)
}

// fixture wires the engine against a fresh in-memory database.
type fixture struct {
    db        *sql.DB
    packages  *repository.PackageRepo
    txRepo    *repository.TransactionRepo
    sessions  *repository.SessionRepo
    clock     *fakeClock
    events    *recordingEvents
    lifecycle *Lifecycle
    enforcer  *Enforcer
    sweeper   *Sweeper
}

var testEpoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func newFixture(t *testing.T) *fixture {
    t.Helper()
    db := setupDB(t)
    f := &fixture{
        db:       db,
        packages: repository.NewPackageRepo(db),
        txRepo:   repository.NewTransactionRepo(db),
        sessions: repository.NewSessionRepo(db),
        clock:    newFakeClock(testEpoch),
        events:   &recordingEvents{},
    }
    f.lifecycle = NewLifecycle(db, f.packages, f.txRepo, f.sessions, f.clock, f.events)
    f.enforcer = NewEnforcer(db, f.txRepo, f.sessions, f.clock, f.events)
    f.sweeper = NewSweeper(db, f.txRepo, f.sessions, f.clock, f.events)
    return f
}

// createPackage inserts a package row directly and returns its ID.
func (f *fixture) createPackage(t *testing.T, name string, value uint32, unit model.DurationUnit, active bool) uint64 {
    t.Helper()
    res, err := f.db.Exec(
        `INSERT INTO packages (name, price_cents, duration_value, duration_unit, max_devices, is_active)
         VALUES (?, ?, ?, ?, ?, ?)`,
        name, 500, value, string(unit), 1, active)
    require.NoError(t, err)
    id, err := res.LastInsertId()
    require.NoError(t, err)
    return uint64(id)
}

// confirmedTransaction initiates and confirms a transaction against a
// fresh package of the given duration, paid at the clock's current
// instant, and returns it.
func (f *fixture) confirmedTransaction(t *testing.T, name string, value uint32, unit model.DurationUnit) *model.Transaction {
    t.Helper()
    ctx := context.Background()
    pkgID := f.createPackage(t, name, value, unit, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)
    paidAt := f.clock.Now()
    receipt := "RC-" + name
    tx, err = f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, &receipt, &paidAt, "")
    require.NoError(t, err)
    require.Equal(t, model.TxSuccessful, tx.Status)
    return tx
}

func (f *fixture) sessionActive(t *testing.T, sessionID uint64) bool {
    t.Helper()
    var active bool
    require.NoError(t, f.db.QueryRow(`SELECT is_active FROM user_sessions WHERE id = ?`, sessionID).Scan(&active))
    return active
}

func (f *fixture) activeSessionCount(t *testing.T, transactionID uint64) int {
    t.Helper()
    var n int
    require.NoError(t, f.db.QueryRow(
        `SELECT COUNT(*) FROM user_sessions WHERE transaction_id = ? AND is_active = 1`, transactionID).Scan(&n))
    return n
}

func (f *fixture) transactionStatus(t *testing.T, id uint64) string {
    t.Helper()
    var status string
    require.NoError(t, f.db.QueryRow(`SELECT status FROM transactions WHERE id = ?`, id).Scan(&status))
    return status
}
