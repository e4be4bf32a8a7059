package internal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/falsenine/storefront/migrations"
)

// RunMigrations brings the order ledger schema up to date from the embedded
// migration files. Runs before the pgx pool opens so the ledger never sees
// a partial schema.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.MigrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("failed to run ledger migrations: %w", err)
	}

	return nil
}
