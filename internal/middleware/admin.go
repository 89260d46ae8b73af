package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/utils"
)

// AdminAuth returns an Echo middleware that protects operator
// endpoints with HTTP basic auth.  The password is checked against a
// bcrypt hash loaded from configuration so the plain secret is never
// stored on the server.
func AdminAuth(user, passHash string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            u, p, ok := c.Request().BasicAuth()
            if !ok || u != user || !utils.VerifyPassword(passHash, p) {
                c.Response().Header().Set("WWW-Authenticate", `Basic realm="admin"`)
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
            }
            return next(c)
        }
    }
}
