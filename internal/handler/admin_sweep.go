package handler

import (
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/billing"
)

// AdminHandler groups operator endpoints.  They sit behind basic auth
// and exist for manual intervention; the ticker in main drives the
// sweeper in normal operation.
type AdminHandler struct {
    Sweeper *billing.Sweeper // batch expiry pass
    Clock   billing.Clock    // supplies "now" for manual sweeps
}

// NewAdminHandler constructs an AdminHandler.  Both dependencies must
// be non-nil.
func NewAdminHandler(sweeper *billing.Sweeper, clock billing.Clock) *AdminHandler {
    if sweeper == nil || clock == nil {
        panic("nil dependency passed to NewAdminHandler")
    }
    return &AdminHandler{Sweeper: sweeper, Clock: clock}
}

// RunSweep handles POST /v1/admin/sweep.  It runs one sweep pass
// immediately and reports how many transactions it expired.  Running
// it twice in a row with nothing newly expired reports zero.
func (h *AdminHandler) RunSweep(c echo.Context) error {
    now := h.Clock.Now()
    n, err := h.Sweeper.Sweep(c.Request().Context(), now)
    if err != nil {
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed", "expired": n})
    }
    return c.JSON(http.StatusOK, echo.Map{
        "expired": n,
        "swept_at": now.Format(time.RFC3339),
    })
}
