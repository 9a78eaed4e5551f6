package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies the embedded schema files in lexical order. Every
// statement is idempotent so Migrate can run on each deploy.
func Migrate(ctx context.Context, client *postgres.Client) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	logger := observability.LoggerFromContext(ctx)
	for _, name := range names {
		body, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := client.DB().ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", name, err)
		}
		logger.Info().Str("migration", name).Msg("applied migration")
	}
	return nil
}
