package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/maxviazov/gamelog-sync/internal/model"
	"github.com/maxviazov/gamelog-sync/internal/service"
)

var syncFlags struct {
	start, end    string
	fullHistory   bool
	localOnly     bool
	skipDetails   bool
	skipOverrides bool
	skipQuality   bool
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch new game logs and bring the log file and warehouse up to date",
	Long: `Run one incremental sync:
  1. Pick the window: --start-date, or the day after the watermark / latest stored game
  2. Fetch team game logs per category, one request per month
  3. Merge into the CSV log and the warehouse (most recent fetch wins)
  4. Fetch box scores and play-by-play for new games
  5. Resolve home/away for ambiguous games
  6. Run the quality gate

The run summary is printed to stdout as JSON. Exit status is 1 only for fatal errors.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncFlags.start, "start-date", "", "first day to fetch (YYYY-MM-DD)")
	f.StringVar(&syncFlags.end, "end-date", "", "last day to fetch (YYYY-MM-DD), defaults to yesterday")
	f.BoolVar(&syncFlags.fullHistory, "fetch-all-history", false, "refetch from the source epoch and replace the stored log")
	f.BoolVar(&syncFlags.localOnly, "local-only", false, "resolve home/away from stored rows only")
	f.BoolVar(&syncFlags.skipDetails, "skip-details", false, "do not fetch box scores and play-by-play")
	f.BoolVar(&syncFlags.skipOverrides, "skip-overrides", false, "do not resolve home/away")
	f.BoolVar(&syncFlags.skipQuality, "skip-quality", false, "do not run the quality gate")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, _ []string) error {
	opts, err := syncOptions()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if t := a.cfg.Sync.Timeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	svc, err := a.syncService()
	if err != nil {
		return err
	}
	started := time.Now()
	summary, runErr := svc.Run(ctx, opts)
	a.log.Info().Str("run_id", summary.RunID).Dur("elapsed", time.Since(started)).Err(runErr).Msg("sync run ended")

	if err := printJSON(stdout, summary); err != nil {
		return err
	}
	return runErr
}

func syncOptions() (service.SyncOptions, error) {
	opts := service.SyncOptions{
		FullHistory:   syncFlags.fullHistory,
		LocalOnly:     syncFlags.localOnly,
		SkipDetails:   syncFlags.skipDetails,
		SkipOverrides: syncFlags.skipOverrides,
		SkipQuality:   syncFlags.skipQuality,
	}
	var err error
	if opts.Start, err = parseDateFlag("start-date", syncFlags.start); err != nil {
		return opts, err
	}
	if opts.End, err = parseDateFlag("end-date", syncFlags.end); err != nil {
		return opts, err
	}
	return opts, nil
}

func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	d, err := model.ParseDay(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q: expected YYYY-MM-DD", name, value)
	}
	return &d, nil
}
