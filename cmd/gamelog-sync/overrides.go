package main

import (
	"github.com/spf13/cobra"

	"github.com/maxviazov/gamelog-sync/internal/service"
)

var overridesFlags struct {
	localOnly bool
	dryRun    bool
	limit     int
}

var overridesCmd = &cobra.Command{
	Use:   "overrides [game_id...]",
	Short: "Resolve home/away for games whose rows do not settle it",
	Long: `Resolve home/away assignments and store them as overrides.

Without game ids, games are discovered from the warehouse: two teams, no override yet
and no clean "vs." / "@" split. Stored rows are tried first, then the game summary endpoint.`,
	RunE: runOverrides,
}

func init() {
	f := overridesCmd.Flags()
	f.BoolVar(&overridesFlags.localOnly, "local-only", false, "never call the stats API")
	f.BoolVar(&overridesFlags.dryRun, "dry-run", false, "resolve and log, but do not store")
	f.IntVar(&overridesFlags.limit, "limit", 500, "max games to discover when no ids are given")
	rootCmd.AddCommand(overridesCmd)
}

func runOverrides(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	resolver, err := a.resolver()
	if err != nil {
		return err
	}
	resolver.DryRun = overridesFlags.dryRun

	ids := args
	if len(ids) == 0 {
		if ids, err = resolver.Discover(ctx, overridesFlags.limit); err != nil {
			return err
		}
		a.log.Info().Int("games", len(ids)).Msg("ambiguous games discovered")
	}

	mode := service.ResolveNetworkFallback
	if overridesFlags.localOnly {
		mode = service.ResolveLocalOnly
	}
	rep, runErr := resolver.Resolve(ctx, ids, mode)
	if err := printJSON(stdout, rep); err != nil {
		return err
	}
	return runErr
}
