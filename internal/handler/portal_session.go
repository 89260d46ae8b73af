package handler

import (
    "errors"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/billing"
    "github.com/mzalendo/hotspot-billing/internal/repository"
    "github.com/mzalendo/hotspot-billing/internal/utils"
)

// SessionHandler exposes session enforcement over HTTP: opening a
// session once a payment has gone through, and the validity check the
// portal (and the hotspot controller) perform while a device is
// online.  A successful open returns a signed portal token that the
// device presents on subsequent validity checks.
type SessionHandler struct {
    Enforcer    *billing.Enforcer // session state and invariants
    JWTSecret   string            // secret for signing portal tokens
    TokenTTLMin int               // portal token TTL in minutes
}

// NewSessionHandler constructs a SessionHandler.  The enforcer must be
// non-nil and the secret non-empty.
func NewSessionHandler(enforcer *billing.Enforcer, jwtSecret string, tokenTTLMin int) *SessionHandler {
    if enforcer == nil || jwtSecret == "" {
        panic("invalid dependencies passed to NewSessionHandler")
    }
    return &SessionHandler{Enforcer: enforcer, JWTSecret: jwtSecret, TokenTTLMin: tokenTTLMin}
}

// OpenSession handles POST /v1/sessions.  The device presents the
// transaction it paid for; when that transaction is SUCCESSFUL (after
// the lazy expiry check) any sibling sessions are deactivated and a
// fresh active session is created.  Returns 201 with the session and
// a portal token, 403 when the transaction cannot grant access, 404
// for an unknown transaction.
func (h *SessionHandler) OpenSession(c echo.Context) error {
    var body struct {
        TransactionID uint64  `json:"transaction_id"`
        DeviceID      string  `json:"device_id"`
        IPAddress     *string `json:"ip_address"`
    }
    if err := c.Bind(&body); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    if body.TransactionID == 0 || body.DeviceID == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_id and device_id are required"})
    }
    s, err := h.Enforcer.OpenSession(c.Request().Context(), body.TransactionID, body.DeviceID, body.IPAddress)
    switch {
    case errors.Is(err, repository.ErrTransactionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "transaction not found"})
    case errors.Is(err, billing.ErrTransactionNotActive):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "transaction does not grant access"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    tok, err := utils.NewPortalToken(h.JWTSecret, s.ID, s.DeviceID, h.TokenTTLMin)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to issue token"})
    }
    return c.JSON(http.StatusCreated, echo.Map{
        "session_id":    s.ID,
        "transaction_id": s.TransactionID,
        "device_id":     s.DeviceID,
        "portal_token":  tok.Token,
        "token_expires": tok.Exp.Format(time.RFC3339),
    })
}

// ValidateSession handles GET /v1/sessions/validate.  The session is
// identified by the portal token (PortalAuth middleware).  An expired
// owning transaction cascades here: the session is deactivated and the
// response says the access is gone.
func (h *SessionHandler) ValidateSession(c echo.Context) error {
    sessionID, ok := c.Get("session_id").(uint64)
    if !ok || sessionID == 0 {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    valid, err := h.Enforcer.IsValid(c.Request().Context(), sessionID)
    switch {
    case errors.Is(err, repository.ErrSessionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    return c.JSON(http.StatusOK, echo.Map{"valid": valid})
}

// DeviceSession handles GET /v1/devices/:mac/session.  The hotspot
// controller uses it as the fast "is this device already sessioned"
// lookup when a device reassociates.  Returns the active session or
// 404.
func (h *SessionHandler) DeviceSession(c echo.Context) error {
    mac := c.Param("mac")
    if mac == "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid device id"})
    }
    s, err := h.Enforcer.ActiveSessionForDevice(c.Request().Context(), mac)
    switch {
    case errors.Is(err, repository.ErrSessionNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "no active session"})
    case err != nil:
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
    }
    out := echo.Map{
        "session_id":     s.ID,
        "transaction_id": s.TransactionID,
        "device_id":      s.DeviceID,
        "created_at":     s.CreatedAt.UTC().Format(time.RFC3339),
        "updated_at":     s.UpdatedAt.UTC().Format(time.RFC3339),
    }
    if s.IPAddress != nil {
        out["ip_address"] = *s.IPAddress
    }
    return c.JSON(http.StatusOK, out)
}
