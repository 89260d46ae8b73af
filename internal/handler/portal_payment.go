package handler

import (
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/billing"
    "github.com/mzalendo/hotspot-billing/internal/model"
    "github.com/mzalendo/hotspot-billing/internal/repository"
)

// PaymentHandler exposes the transaction lifecycle over HTTP: payment
// initiation from the portal, the mobile-money gateway callback, and
// the status poll the portal uses while the customer approves the
// payment on their phone.  Verifying the gateway's webhook signature
// happens in front of this service; the handler only maps the callback
// body onto the billing engine.
type PaymentHandler struct {
    Lifecycle *billing.Lifecycle // transaction state machine
}

// NewPaymentHandler constructs a PaymentHandler.  The lifecycle must
// be non-nil.
func NewPaymentHandler(lifecycle *billing.Lifecycle) *PaymentHandler {
    if lifecycle == nil {
        panic("nil lifecycle passed to NewPaymentHandler")
    }
    return &PaymentHandler{Lifecycle: lifecycle}
}

// txResponse renders a transaction for API consumers.  Nullable
// timestamps are RFC3339 strings or absent.
func txResponse(t *model.Transaction) echo.Map {
    out := echo.Map{
        "id":           t.ID,
        "package_id":   t.PackageID,
        "device_id":    t.DeviceID,
        "amount_cents": t.AmountCents,
        "status":       t.Status,
        "initiated_at": t.InitiatedAt.UTC().Format(time.RFC3339),
    }
    if t.Receipt != nil {
        out["receipt"] = *t.Receipt
    }
    if t.FailureReason != nil {
        out["failure_reason"] = *t.FailureReason
    }
    if t.PaidAt != nil {
        out["paid_at"] = t.PaidAt.UTC().Format(time.RFC3339)
    }
    if t.ExpiresAt != nil {
        out["expires_at"] = t.ExpiresAt.UTC().Format(time.RFC3339)
    }
    return out
}

// InitiatePayment handles POST /v1/payments.  The body names the
// package being bought, the buying device and the amount tendered; a
// receipt may already be present for flows where the customer pays
// first and enters the receipt number at the portal.  It returns 201
// with the PENDING transaction, 404 for an unknown package, 409 for a
// duplicate receipt and 422 for a package no longer on sale.
func (h *PaymentHandler) InitiatePayment(c echo.Context) error {
    var body struct {
        PackageID   uint64  `json:"package_id"`
        DeviceID    string  `json:"device_id"`
        AmountCents uint32  `json:"amount_cents"`
        Receipt     *string `json:"receipt"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.PackageID == 0 || body.DeviceID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "package_id and device_id are required"})
    }
    t, err := h.Lifecycle.Initiate(c.Request().Context(), body.PackageID, body.DeviceID, body.AmountCents, body.Receipt)
    switch {
    case errors.Is(err, repository.ErrPackageNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "package not found"})
    case errors.Is(err, billing.ErrPackageNotActive):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "package not on sale"})
    case errors.Is(err, repository.ErrDuplicateReceipt):
        return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate receipt"})
    case errors.Is(err, billing.ErrInvalidDurationUnit):
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "package misconfigured"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusCreated, txResponse(t))
}

// GatewayCallback handles POST /v1/payments/callback.  The mobile-money
// provider (via the verifying proxy) reports the outcome of a pending
// payment: SUCCESS with a receipt number and paid-at instant, or
// FAILURE with a reason.  Callbacks for transactions already in a
// terminal state return 409 so the gateway stops retrying.
func (h *PaymentHandler) GatewayCallback(c echo.Context) error {
    var body struct {
        TransactionID uint64  `json:"transaction_id"`
        Result        string  `json:"result"`
        Receipt       *string `json:"receipt"`
        PaidAt        *string `json:"paid_at"`
        Reason        string  `json:"reason"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TransactionID == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_id is required"})
    }
    var outcome billing.Outcome
    switch body.Result {
    case string(billing.OutcomeSuccess):
        outcome = billing.OutcomeSuccess
    case string(billing.OutcomeFailure):
        outcome = billing.OutcomeFailure
    default:
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "result must be SUCCESS or FAILURE"})
    }
    var paidAt *time.Time
    if body.PaidAt != nil && *body.PaidAt != "" {
        ts, err := time.Parse(time.RFC3339, *body.PaidAt)
        if err != nil {
            return c.JSON(http.StatusBadRequest, echo.Map{"error": "paid_at must be RFC3339"})
        }
        utc := ts.UTC()
        paidAt = &utc
    }
    t, err := h.Lifecycle.ConfirmPayment(c.Request().Context(), body.TransactionID, outcome, body.Receipt, paidAt, body.Reason)
    switch {
    case errors.Is(err, repository.ErrTransactionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
    case errors.Is(err, billing.ErrInvalidTransition):
        return c.JSON(http.StatusConflict, echo.Map{"error": "transaction already finalized"})
    case errors.Is(err, repository.ErrDuplicateReceipt):
        return c.JSON(http.StatusConflict, echo.Map{"error": "duplicate receipt"})
    case errors.Is(err, billing.ErrInvalidDurationUnit):
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "package misconfigured"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, txResponse(t))
}

// GetTransaction handles GET /v1/transactions/:id.  The portal polls
// this while waiting for the customer to approve the payment.  The
// read applies the lazy expiry rule, so a stale SUCCESSFUL transaction
// comes back EXPIRED.
func (h *PaymentHandler) GetTransaction(c echo.Context) error {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    if err != nil || id == 0 {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
    }
    t, err := h.Lifecycle.Get(c.Request().Context(), id)
    switch {
    case errors.Is(err, repository.ErrTransactionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, txResponse(t))
}
