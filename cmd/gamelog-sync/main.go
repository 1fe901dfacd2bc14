// Command gamelog-sync keeps the team game log, its details and home/away overrides in step
// with the NBA stats API. It is a batch job: every invocation does one unit of work and exits.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/maxviazov/gamelog-sync/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "gamelog-sync",
	Short:         "Incremental sync of NBA team game logs into a CSV log and a Postgres warehouse",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath, "path to the YAML config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}
