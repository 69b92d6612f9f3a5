package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/openlistings/listings-refinery/internal/core/services/gazetteer"
	"github.com/openlistings/listings-refinery/internal/core/services/pipeline"
	"github.com/openlistings/listings-refinery/internal/infrastructure/parsers"
)

func createNormalizeCmd() *cobra.Command {
	var inputPath string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Normalize a raw listings export into the canonical CSV",
		Long:  `Reads the tall key-value listings export, cleans suburbs, addresses, descriptions, contacts and features, and writes the sorted normalized CSV`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("normalize")
			if err != nil {
				return err
			}
			if inputPath != "" {
				cfg.InputPath = inputPath
			}
			if outputPath != "" {
				cfg.OutputPath = outputPath
			}

			loader := gazetteer.NewLoader(cfg.RefDataDir, cfg.GazetteerFile, cfg.GazetteerURL, cfg.FetchMaxAttempts, log)
			factory := parsers.NewParserFactory(parsers.DefaultParserConfig())
			driver := pipeline.NewDriver(cfg, loader, factory, log)

			result, err := driver.Run(cmd.Context())
			if err != nil {
				return err
			}

			log.Info("normalization complete",
				slog.Int("total_rows", result.TotalRows),
				slog.Int("skipped_rows", result.SkippedRows),
				slog.Int("normalized_rows", result.NormalizedRows),
				slog.Int("fallback_hits", result.FallbackHits),
			)
			fmt.Printf("Normalized %d rows (%d skipped, %d address fallbacks) -> %s\n",
				result.NormalizedRows, result.SkippedRows, result.FallbackHits, cfg.OutputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Raw export file (overrides INPUT_PATH)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Normalized CSV destination (overrides OUTPUT_PATH)")

	return cmd
}
