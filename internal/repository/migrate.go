package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gamelog-sync/migrations"
)

// gooseLogger routes goose output through zerolog.
type gooseLogger struct{ logger zerolog.Logger }

func (g gooseLogger) Printf(format string, v ...any) { g.logger.Info().Msgf(format, v...) }
func (g gooseLogger) Fatalf(format string, v ...any) { g.logger.Fatal().Msgf(format, v...) }

// Migrate applies the embedded goose migrations up to the latest version.
func Migrate(ctx context.Context, dsn string, logger zerolog.Logger) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping before migrate: %w", err)
	}

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{logger: logger.With().Str("component", "goose").Logger()})
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, migrations.Dir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	version, err := goose.GetDBVersionContext(ctx, db)
	if err != nil {
		return fmt.Errorf("goose version: %w", err)
	}
	logger.Info().Int64("version", version).Msg("warehouse schema is up to date")
	return nil
}
