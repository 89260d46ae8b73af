package main // Entry point package

import (
    "context"
    "log"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/mzalendo/hotspot-billing/internal/billing"
    "github.com/mzalendo/hotspot-billing/internal/config"
    "github.com/mzalendo/hotspot-billing/internal/database"
    "github.com/mzalendo/hotspot-billing/internal/handler"
    "github.com/mzalendo/hotspot-billing/internal/queue"
    "github.com/mzalendo/hotspot-billing/internal/repository"
    "github.com/mzalendo/hotspot-billing/internal/router"
    queue_publisher "github.com/mzalendo/hotspot-billing/internal/service"
)

func main() {
    // .env is a development convenience; real deployments set the
    // environment directly.
    _ = godotenv.Load()
    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    ctx := context.Background()
    if err := database.RunMigrations(ctx, db); err != nil {
        log.Fatalf("migrations: %v", err)
    }

    // Redis backs rate limiting and the package-listing cache.  A nil
    // client disables both; the portal keeps serving.
    rdb := config.NewRedisClient()
    if rdb == nil {
        log.Printf("redis unavailable; rate limiting and caching disabled")
    }

    packages := repository.NewPackageRepo(db)
    txRepo := repository.NewTransactionRepo(db)
    sessions := repository.NewSessionRepo(db)

    clock := billing.SystemClock{}
    events := queue_publisher.New()

    lifecycle := billing.NewLifecycle(db, packages, txRepo, sessions, clock, events)
    enforcer := billing.NewEnforcer(db, txRepo, sessions, clock, events)
    sweeper := billing.NewSweeper(db, txRepo, sessions, clock, events)

    // The sweeper expires stale grants even when nobody polls them.
    go sweeper.Run(ctx, cfg.SweepInterval)

    // The access consumer tails the broker queues into logs/access.log.
    go func() {
        if err := queue.StartAccessConsumer(); err != nil {
            log.Printf("access consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    router.RegisterRoutes(e)
    router.RegisterPortal(e,
        handler.NewPackageHandler(packages),
        handler.NewPaymentHandler(lifecycle),
        handler.NewSessionHandler(enforcer, cfg.JWTSecret, cfg.PortalTokenTTLMin),
        rdb, cfg.JWTSecret)
    router.RegisterAdmin(e, handler.NewAdminHandler(sweeper, clock), cfg.AdminUser, cfg.AdminPassHash)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    if err := e.Start(addr); err != nil {
        log.Fatal(err)
    }
}
