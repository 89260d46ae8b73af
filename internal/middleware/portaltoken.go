package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/utils"
)

// PortalAuth returns an Echo middleware that validates a Bearer portal
// token and injects the session ID and device identifier it carries
// into the request context.  The provided secret must match the one
// used when issuing tokens.  This middleware wraps the session
// validity endpoints so handlers can read `c.Get("session_id")` and
// `c.Get("device_id")` without re-parsing the token.
func PortalAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            sessionID, deviceID, err := utils.ParsePortalToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
            }
            c.Set("session_id", sessionID)
            c.Set("device_id", deviceID)
            return next(c)
        }
    }
}
