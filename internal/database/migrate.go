package database

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/pressly/goose/v3"

    "github.com/mzalendo/hotspot-billing/internal/database/migrations"
)

// RunMigrations applies all pending schema migrations from the
// embedded migration files.  It is invoked once at server startup,
// before any repository touches the database.
func RunMigrations(ctx context.Context, db *sql.DB) error {
    goose.SetBaseFS(migrations.Migrations)
    if err := goose.SetDialect("mysql"); err != nil {
        return fmt.Errorf("set dialect: %w", err)
    }
    if err := goose.UpContext(ctx, db, "."); err != nil {
        return fmt.Errorf("run migrations: %w", err)
    }
    return nil
}
