package billing

import (
    "context"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/mzalendo/hotspot-billing/internal/model"
    "github.com/mzalendo/hotspot-billing/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestInitiate_CreatesPending(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "hour-pass", 1, model.DurationHours, true)

    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    assert.NotZero(t, tx.ID)
    assert.Equal(t, model.TxPending, tx.Status)
    assert.Nil(t, tx.PaidAt)
    assert.Nil(t, tx.ExpiresAt)
    assert.True(t, tx.InitiatedAt.Equal(testEpoch))

    stored, err := f.lifecycle.Get(ctx, tx.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TxPending, stored.Status)
    assert.Equal(t, pkgID, stored.PackageID)
}

func TestInitiate_UnknownPackage(t *testing.T) {
    f := newFixture(t)
    _, err := f.lifecycle.Initiate(context.Background(), 999, "AA:BB:CC:DD:EE:01", 500, nil)
    require.ErrorIs(t, err, repository.ErrPackageNotFound)
}

func TestInitiate_InactivePackage(t *testing.T) {
    f := newFixture(t)
    pkgID := f.createPackage(t, "retired", 1, model.DurationHours, false)
    _, err := f.lifecycle.Initiate(context.Background(), pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.ErrorIs(t, err, ErrPackageNotActive)
}

// A package whose duration unit is outside the enumerated set is
// rejected before any money changes hands.
func TestInitiate_MisconfiguredUnit(t *testing.T) {
    f := newFixture(t)
    pkgID := f.createPackage(t, "broken", 2, model.DurationUnit("FORTNIGHTS"), true)
    _, err := f.lifecycle.Initiate(context.Background(), pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.ErrorIs(t, err, ErrInvalidDurationUnit)
}

func TestInitiate_DuplicateReceipt(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "hour-pass", 1, model.DurationHours, true)

    _, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, strPtr("RCPT-1"))
    require.NoError(t, err)
    _, err = f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:02", 500, strPtr("RCPT-1"))
    require.ErrorIs(t, err, repository.ErrDuplicateReceipt)
}

func TestConfirmPayment_Success(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "half-hour", 30, model.DurationMinutes, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    paidAt := f.clock.Now()
    got, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-OK"), &paidAt, "")
    require.NoError(t, err)

    assert.Equal(t, model.TxSuccessful, got.Status)
    require.NotNil(t, got.Receipt)
    assert.Equal(t, "RCPT-OK", *got.Receipt)
    require.NotNil(t, got.PaidAt)
    assert.WithinDuration(t, paidAt, *got.PaidAt, time.Second)
    require.NotNil(t, got.ExpiresAt)
    assert.WithinDuration(t, paidAt.Add(30*time.Minute), *got.ExpiresAt, time.Second)
}

// When the gateway omits the payment timestamp the confirmation
// instant is the start of the access window.
func TestConfirmPayment_SuccessDefaultsToNow(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "half-hour", 30, model.DurationMinutes, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    f.clock.Advance(5 * time.Minute)
    got, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-NOW"), nil, "")
    require.NoError(t, err)
    require.NotNil(t, got.ExpiresAt)
    assert.WithinDuration(t, f.clock.Now().Add(30*time.Minute), *got.ExpiresAt, time.Second)
}

func TestConfirmPayment_Failure(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "hour-pass", 1, model.DurationHours, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    got, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeFailure, nil, nil, "insufficient balance")
    require.NoError(t, err)
    assert.Equal(t, model.TxFailed, got.Status)
    require.NotNil(t, got.FailureReason)
    assert.Equal(t, "insufficient balance", *got.FailureReason)
    assert.Nil(t, got.ExpiresAt)
}

func TestConfirmPayment_RepeatSuccessIsNoOp(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    tx := f.confirmedTransaction(t, "half-hour", 30, model.DurationMinutes)
    firstExpiry := *tx.ExpiresAt

    // Retried callback, later and with a different receipt: the stored
    // expiry and receipt must not move.
    f.clock.Advance(10 * time.Minute)
    later := f.clock.Now()
    got, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-RETRY"), &later, "")
    require.NoError(t, err)
    assert.Equal(t, model.TxSuccessful, got.Status)
    require.NotNil(t, got.ExpiresAt)
    assert.WithinDuration(t, firstExpiry, *got.ExpiresAt, time.Second)
    require.NotNil(t, got.Receipt)
    assert.Equal(t, "RC-half-hour", *got.Receipt)
}

func TestConfirmPayment_TerminalStatesReject(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "hour-pass", 1, model.DurationHours, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    _, err = f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeFailure, nil, nil, "timeout")
    require.NoError(t, err)

    _, err = f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-LATE"), nil, "")
    require.ErrorIs(t, err, ErrInvalidTransition)
    _, err = f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeFailure, nil, nil, "again")
    require.ErrorIs(t, err, ErrInvalidTransition)

    assert.Equal(t, model.TxFailed, f.transactionStatus(t, tx.ID))
}

func TestConfirmPayment_SuccessfulNeverFails(t *testing.T) {
    f := newFixture(t)
    tx := f.confirmedTransaction(t, "half-hour", 30, model.DurationMinutes)

    _, err := f.lifecycle.ConfirmPayment(context.Background(), tx.ID, OutcomeFailure, nil, nil, "chargeback")
    require.ErrorIs(t, err, ErrInvalidTransition)
    assert.Equal(t, model.TxSuccessful, f.transactionStatus(t, tx.ID))
}

// A confirmation whose computed expiry already lies in the past grants
// no access: the transaction goes straight to EXPIRED.
func TestConfirmPayment_TooLateExpiresImmediately(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "half-hour", 30, model.DurationMinutes, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    paidAt := f.clock.Now()
    f.clock.Advance(2 * time.Hour)

    got, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-SLOW"), &paidAt, "")
    require.NoError(t, err)
    assert.Equal(t, model.TxExpired, got.Status)
    require.NotNil(t, got.ExpiresAt)
    assert.WithinDuration(t, paidAt.Add(30*time.Minute), *got.ExpiresAt, time.Second)
    assert.Equal(t, 1, f.events.revokedCount())
}

// An expiry landing exactly on the confirmation instant is still
// inside the window: only a strictly past expiry is too late.  This
// keeps the confirm path on the same boundary rule as the lazy checks.
func TestConfirmPayment_BoundaryInstantStillValid(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "half-hour", 30, model.DurationMinutes, true)
    tx, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)

    paidAt := f.clock.Now().Add(-30 * time.Minute)
    got, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-EDGE"), &paidAt, "")
    require.NoError(t, err)
    assert.Equal(t, model.TxSuccessful, got.Status)

    // A read at the same instant agrees; one tick later it expires.
    got, err = f.lifecycle.Get(ctx, tx.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TxSuccessful, got.Status)
    f.clock.Advance(time.Second)
    got, err = f.lifecycle.Get(ctx, tx.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TxExpired, got.Status)
}

func TestGet_LazyExpiry(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    tx := f.confirmedTransaction(t, "half-hour", 30, model.DurationMinutes)
    s, err := f.enforcer.OpenSession(ctx, tx.ID, "AA:BB:CC:DD:EE:01", nil)
    require.NoError(t, err)

    // Within the window nothing flips.
    f.clock.Advance(20 * time.Minute)
    got, err := f.lifecycle.Get(ctx, tx.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TxSuccessful, got.Status)
    assert.Equal(t, 0, f.events.revokedCount())

    // Past the window a plain read persists the flip and cascades to
    // the session.
    f.clock.Advance(20 * time.Minute)
    got, err = f.lifecycle.Get(ctx, tx.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TxExpired, got.Status)
    assert.Equal(t, model.TxExpired, f.transactionStatus(t, tx.ID))
    assert.False(t, f.sessionActive(t, s.ID))
    assert.Equal(t, 1, f.events.revokedCount())

    // Repeat reads see the terminal row and fire nothing.
    got, err = f.lifecycle.Get(ctx, tx.ID)
    require.NoError(t, err)
    assert.Equal(t, model.TxExpired, got.Status)
    assert.Equal(t, 1, f.events.revokedCount())
}

func TestConfirmPayment_LazyExpiryBeforeDecision(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    tx := f.confirmedTransaction(t, "half-hour", 30, model.DurationMinutes)

    f.clock.Advance(time.Hour)
    _, err := f.lifecycle.ConfirmPayment(ctx, tx.ID, OutcomeSuccess, strPtr("RCPT-RETRY"), nil, "")
    require.ErrorIs(t, err, ErrInvalidTransition)
    assert.Equal(t, model.TxExpired, f.transactionStatus(t, tx.ID))
}

func TestConfirmPayment_DuplicateReceiptAcrossTransactions(t *testing.T) {
    f := newFixture(t)
    ctx := context.Background()
    pkgID := f.createPackage(t, "hour-pass", 1, model.DurationHours, true)

    first, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:01", 500, nil)
    require.NoError(t, err)
    _, err = f.lifecycle.ConfirmPayment(ctx, first.ID, OutcomeSuccess, strPtr("RCPT-SHARED"), nil, "")
    require.NoError(t, err)

    second, err := f.lifecycle.Initiate(ctx, pkgID, "AA:BB:CC:DD:EE:02", 500, nil)
    require.NoError(t, err)
    _, err = f.lifecycle.ConfirmPayment(ctx, second.ID, OutcomeSuccess, strPtr("RCPT-SHARED"), nil, "")
    require.ErrorIs(t, err, repository.ErrDuplicateReceipt)
    assert.Equal(t, model.TxPending, f.transactionStatus(t, second.ID))
}

func TestGet_NotFound(t *testing.T) {
    f := newFixture(t)
    _, err := f.lifecycle.Get(context.Background(), 12345)
    require.ErrorIs(t, err, repository.ErrTransactionNotFound)
}
