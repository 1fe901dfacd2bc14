package main

import (
	"github.com/spf13/cobra"

	"github.com/maxviazov/gamelog-sync/internal/config"
	"github.com/maxviazov/gamelog-sync/internal/logger"
	"github.com/maxviazov/gamelog-sync/internal/repository"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the embedded warehouse migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		appLogger, err := logger.New(&cfg.Logger)
		if err != nil {
			return err
		}
		return repository.Migrate(cmd.Context(), repository.DSN(cfg.Postgres), appLogger)
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
