package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/PauloHFS/faceauth/internal/logging"
	"github.com/PauloHFS/faceauth/migrations"
	"github.com/pressly/goose/v3"
)

// RunMigrations aplica as migrações goose embutidas que ainda não rodaram.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("falha ao preparar migrações: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("falha ao executar migrações: %w", err)
	}

	for _, r := range results {
		logging.Get().Debug("migration applied",
			slog.String("source", r.Source.Path),
			slog.Duration("duration", r.Duration),
		)
	}
	return nil
}
