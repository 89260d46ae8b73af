package billing

import (
    "context"
    "database/sql"
    "log"
    "time"

    "github.com/mzalendo/hotspot-billing/internal/repository"
)

// sweepBatchSize caps how many transaction IDs one selection pass
// pulls.  Each expiry still runs in its own database transaction, so a
// large backlog never holds locks that would block live payment
// confirmations.
const sweepBatchSize = 500

// Sweeper is the periodic batch pass that proactively expires stale
// SUCCESSFUL transactions.  It is purely additive to the lazy
// expiry-on-read rule: the sweeper guarantees timely expiry for
// transactions nobody reads, lazy reads guarantee correctness between
// sweeps.
type Sweeper struct {
    db       *sql.DB
    txRepo   *repository.TransactionRepo
    sessions *repository.SessionRepo
    clock    Clock
    events   EventPublisher
}

// NewSweeper constructs a Sweeper.  events may be nil to disable
// outward notifications; everything else must be non-nil.
func NewSweeper(db *sql.DB, txRepo *repository.TransactionRepo, sessions *repository.SessionRepo, clock Clock, events EventPublisher) *Sweeper {
    if db == nil || txRepo == nil || sessions == nil || clock == nil {
        panic("nil dependency passed to NewSweeper")
    }
    return &Sweeper{db: db, txRepo: txRepo, sessions: sessions, clock: clock, events: events}
}

// Sweep expires every SUCCESSFUL transaction whose expiry lies before
// now and deactivates its sessions, one short database transaction per
// row.  It returns how many transactions this call expired.  Running
// it twice in a row with no new expirations yields zero: the
// status-guarded UPDATE makes each flip apply at most once, so the
// sweep is idempotent and safe to run concurrently with lazy reads.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
    count := 0
    for {
        ids, err := s.txRepo.ListExpiredIDs(ctx, now, sweepBatchSize)
        if err != nil {
            return count, err
        }
        if len(ids) == 0 {
            return count, nil
        }
        progressed := false
        for _, id := range ids {
            expired, err := s.sweepOne(ctx, id, now)
            if err != nil {
                return count, err
            }
            if expired {
                count++
                progressed = true
            }
        }
        if !progressed {
            // Every candidate was already handled by a concurrent
            // lazy read; nothing left for this pass.
            return count, nil
        }
    }
}

func (s *Sweeper) sweepOne(ctx context.Context, id uint64, now time.Time) (bool, error) {
    tx, err := s.db.BeginTx(ctx, nil)
    if err != nil {
        return false, err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    t, err := s.txRepo.GetTx(ctx, tx, id)
    if err != nil {
        return false, err
    }
    flipped, closed, err := expireStaleTx(ctx, tx, s.txRepo, s.sessions, t, now)
    if err != nil {
        return false, err
    }
    if err := tx.Commit(); err != nil {
        return false, err
    }
    committed = true
    if flipped && s.events != nil {
        s.events.AccessRevoked(ctx, t, closed)
    }
    return flipped, nil
}

// Run invokes Sweep on the given interval until ctx is cancelled.  It
// is started once from main and runs on its own schedule, independent
// of request-serving concurrency.  Sweep errors are logged and the
// loop keeps going; a broken sweep must never take the portal down.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
    ticker := time.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            n, err := s.Sweep(ctx, s.clock.Now())
            if err != nil {
                log.Printf("sweeper: sweep failed: %v", err)
                continue
            }
            if n > 0 {
                log.Printf("sweeper: expired %d transaction(s)", n)
            }
        }
    }
}
