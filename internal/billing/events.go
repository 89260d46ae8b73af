package billing

import (
    "context"

    "github.com/mzalendo/hotspot-billing/internal/model"
)

// EventPublisher receives notifications after a state change has been
// committed.  The engine cascades session deactivation synchronously
// inside the same database transaction; these events are the outward
// notification only (e.g. telling the hotspot controller to cut a
// device off).  Implementations must not block the caller for long and
// should swallow-and-log their own delivery failures.  A nil publisher
// disables notifications.
type EventPublisher interface {
    // AccessRevoked fires when a transaction reaches FAILED or
    // EXPIRED.  sessionsClosed is how many active sessions were
    // deactivated in the same unit of work.
    AccessRevoked(ctx context.Context, t *model.Transaction, sessionsClosed int64)

    // SessionOpened fires when a device opens a session against a
    // successful transaction.
    SessionOpened(ctx context.Context, s *model.UserSession)
}
