package middleware

// identity.go defines helper functions shared across middleware files.
// Currently it provides a device identity extraction function used for
// rate-limit key building. Captive-portal clients are anonymous, so the
// identity is the device identifier carried by a portal token when one
// is present; otherwise "guest" is returned.

import "github.com/labstack/echo/v4"

// currentDeviceID extracts the device identifier stored in context by
// PortalAuth. It returns "guest" when the request carries no valid
// portal token.
func currentDeviceID(c echo.Context) string {
    if v := c.Get("device_id"); v != nil {
        if s, ok := v.(string); ok && s != "" {
            return s
        }
    }
    return "guest"
}
