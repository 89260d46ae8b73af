package router // package router defines how HTTP routes are registered for the API

import (
    "github.com/labstack/echo/v4" // import the Echo web framework to handle routing
    "github.com/redis/go-redis/v9"

    "github.com/mzalendo/hotspot-billing/internal/config"
    "github.com/mzalendo/hotspot-billing/internal/handler"
    "github.com/mzalendo/hotspot-billing/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication
// on the provided Echo instance.  Currently it exposes only a health
// check, which load balancers and monitoring use to verify that the
// service is up.
func RegisterRoutes(e *echo.Echo) {
    e.GET("/healthz", handler.Health)
}

// RegisterPortal registers the captive-portal endpoints.  Portal
// clients are anonymous devices, so every endpoint sits behind the
// Redis token-bucket rate limiter; the package listing additionally
// goes through the response cache.  The session validity check is the
// only route that requires a portal token.
func RegisterPortal(e *echo.Echo, p *handler.PackageHandler, pay *handler.PaymentHandler, s *handler.SessionHandler, rdb *redis.Client, jwtSecret string) {
    rl := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
    cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

    v1 := e.Group("/v1", rl)

    // Plan picker for the portal landing page.  Cached: every device
    // that associates with the hotspot loads this.
    v1.GET("/packages", p.ListPackages, cache)

    // Payment initiation and the gateway's confirmation callback.
    v1.POST("/payments", pay.InitiatePayment)
    v1.POST("/payments/callback", pay.GatewayCallback)
    // Status poll while the customer approves the payment on their
    // phone.  The read applies lazy expiry.
    v1.GET("/transactions/:id", pay.GetTransaction)

    // Session open once the transaction is SUCCESSFUL, plus the
    // controller's device lookup.
    v1.POST("/sessions", s.OpenSession)
    v1.GET("/devices/:mac/session", s.DeviceSession)

    // Validity checks carry the portal token issued at session open.
    v1.GET("/sessions/validate", s.ValidateSession, middleware.PortalAuth(jwtSecret))
}

// RegisterAdmin registers operator endpoints behind basic auth.  The
// manual sweep trigger mirrors the periodic ticker for on-demand runs.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, user, passHash string) {
    g := e.Group("/v1/admin", middleware.AdminAuth(user, passHash))
    g.POST("/sweep", a.RunSweep)
}
