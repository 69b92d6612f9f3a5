// listingsctl drives the legacy listings refinery: normalize cleans a raw
// key-value export into the canonical CSV, import reconciles that CSV into
// the relational schema, worker drains the distributed import queue, and
// dedup-suburbs collapses duplicate suburb rows left by older imports.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlistings/listings-refinery/internal/pkg/config"
	"github.com/openlistings/listings-refinery/internal/pkg/logger"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "listingsctl",
		Short:         "Legacy real-estate listings normalization and import",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(createNormalizeCmd())
	rootCmd.AddCommand(createImportCmd())
	rootCmd.AddCommand(createDedupSuburbsCmd())
	rootCmd.AddCommand(createWorkerCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and initializes the process-wide logger,
// returning a logger tagged with the subcommand's stage name
func setup(stage string) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("config load failed: %w", err)
	}
	logger.Initialize(cfg.Environment)
	return cfg, logger.NewStageLogger(stage), nil
}
