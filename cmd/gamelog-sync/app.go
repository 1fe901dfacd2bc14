package main

import (
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/logger"
	"github.com/maxviazov/gamelog-sync/internal/repository"
	"github.com/maxviazov/gamelog-sync/internal/repository/postgres"
	"github.com/maxviazov/gamelog-sync/internal/retry"
	"github.com/maxviazov/gamelog-sync/internal/service"
	"github.com/maxviazov/gamelog-sync/internal/statsapi"
	"github.com/maxviazov/gamelog-sync/internal/store"
)

// app is everything one command needs, built from the config file.
type app struct {
	cfg *config.Config
	log zerolog.Logger
	db  *repository.Repository

	games     repository.GameLogRepository
	details   repository.DetailRepository
	overrides repository.OverrideRepository
	tx        repository.TxManager
}

// bootstrap loads config, builds the logger and connects to the warehouse.
// Migrations run first when postgres.auto_migrate is set.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("config loading failed: %w", err)
	}
	appLogger, err := logger.New(&cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger initialization failed: %w", err)
	}
	appLogger = appLogger.With().Str("app", cfg.App.Name).Str("version", cfg.App.Version).Logger()

	if cfg.Postgres.AutoMigrate {
		if err := repository.Migrate(ctx, repository.DSN(cfg.Postgres), appLogger); err != nil {
			return nil, fmt.Errorf("migrations failed: %w", err)
		}
	}
	db, err := repository.New(ctx, cfg.Postgres, &appLogger)
	if err != nil {
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	pool := db.Pool()
	return &app{
		cfg:       cfg,
		log:       appLogger,
		db:        db,
		games:     postgres.NewGameLogRepository(pool),
		details:   postgres.NewDetailRepository(pool),
		overrides: postgres.NewOverrideRepository(pool),
		tx:        postgres.NewTxManager(pool),
	}, nil
}

func (a *app) Close() { a.db.Close() }

// client builds a stats API client with the given retry section.
func (a *app) client(rc config.RetryConfig) (*statsapi.Client, error) {
	return statsapi.New(a.cfg.Source, retry.FromConfig(rc, statsapi.IsRetryable), a.log)
}

// resolver wires the home/away resolver with its own, slower retry curve.
func (a *app) resolver() (*service.ResolverService, error) {
	c, err := a.client(a.cfg.Overrides.Retry)
	if err != nil {
		return nil, err
	}
	return service.NewResolverService(a.games, a.overrides, c, a.cfg.Overrides, a.log), nil
}

func (a *app) quality() *service.QualityService {
	return service.NewQualityService(a.games, a.overrides, a.cfg.Quality, a.log)
}

// syncService assembles the full pipeline; disabled stages stay nil.
func (a *app) syncService() (*service.SyncService, error) {
	c, err := a.client(a.cfg.Retry)
	if err != nil {
		return nil, err
	}
	deps := service.SyncDeps{
		Fetcher:   c,
		LogFile:   store.GameLogFile{Path: a.cfg.Sync.LogPath},
		Watermark: store.WatermarkFile{Path: a.cfg.Sync.WatermarkPath, Logger: a.log},
		Games:     a.games,
		Tx:        a.tx,
	}
	if a.cfg.Details.Enabled {
		deps.Details = service.NewDetailService(c, a.details, a.tx, a.cfg.Details, a.log)
	}
	if a.cfg.Overrides.Enabled {
		if deps.Resolver, err = a.resolver(); err != nil {
			return nil, err
		}
	}
	if a.cfg.Quality.Enabled {
		deps.Quality = a.quality()
	}
	return service.NewSyncService(deps, a.cfg.Source, a.cfg.Sync, a.log)
}

// printJSON writes v as indented JSON; this is the machine-readable side channel for schedulers.
func printJSON(w io.Writer, v any) error {
	out, err := jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

var stdout io.Writer = os.Stdout
