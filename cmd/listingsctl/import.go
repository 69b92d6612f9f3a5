package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/core/services/addressparse"
	"github.com/openlistings/listings-refinery/internal/core/services/reconcile"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
	"github.com/openlistings/listings-refinery/internal/infrastructure/cache"
	"github.com/openlistings/listings-refinery/internal/infrastructure/database"
	"github.com/openlistings/listings-refinery/internal/infrastructure/database/repositories"
	"github.com/openlistings/listings-refinery/internal/infrastructure/parsers"
	"github.com/openlistings/listings-refinery/internal/infrastructure/queue"
	"github.com/openlistings/listings-refinery/internal/infrastructure/storage"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

func createImportCmd() *cobra.Command {
	var inputPath string
	var archiveDir string
	var useQueue bool
	var force bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import a normalized listings CSV into the database",
		Long:  `Reconciles each listing of the normalized CSV into the relational schema: reference rows, parsed addresses, prices, media and categories. Re-running on the same file is a no-op unless --force is given.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("import")
			if err != nil {
				return err
			}
			if len(args) == 1 {
				inputPath = args[0]
			}
			if inputPath == "" {
				inputPath = cfg.OutputPath
			}
			ctx := cmd.Context()

			db, err := database.NewPostgresDB(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return err
			}

			fileHash, err := storage.HashFile(inputPath)
			if err != nil {
				return err
			}

			batches := repositories.NewBatchRepository(db.DB, log)
			batch := &domain.ImportBatch{
				InputFilename: filepath.Base(inputPath),
				FileHash:      fileHash,
				Status:        domain.BatchStatusCreated,
			}
			existed, err := batches.GetOrCreate(ctx, batch)
			if err != nil {
				return err
			}
			if existed && batch.Status == domain.BatchStatusCompleted && !force {
				fmt.Printf("File already imported as batch %s, use --force to re-run\n", batch.ID)
				return nil
			}

			factory := parsers.NewParserFactory(parsers.DefaultParserConfig())
			parseResult, err := factory.ParseFile(ctx, inputPath)
			if err != nil {
				return err
			}
			groups := domain.GroupRows(parseResult.Rows)

			batch.Status = domain.BatchStatusImporting
			batch.TotalRows = parseResult.TotalRows
			batch.SkippedRows = parseResult.SkippedRows
			if err := batches.Update(ctx, batch); err != nil {
				return err
			}

			if useQueue {
				return enqueueGroups(cmd, cfg, log, batch, groups)
			}

			var refCache reconcile.Cache
			if cfg.CacheEnabled {
				redisCache, err := cache.NewRedisCache(cfg, log)
				if err != nil {
					return err
				}
				defer redisCache.Close()
				refCache = redisCache
			}

			refs := repositories.NewReferenceRepository(db.DB, log)
			listings := repositories.NewListingRepository(db.DB, log)
			parser := addressparse.New(streettype.New())
			service := reconcile.NewService(refs, listings, parser, refCache, cfg, log)

			result, err := service.ReconcileAll(ctx, groups)
			imported := int(result.Imported.Load())
			failed := int(result.Failed.Load())

			batch.ListingsImported = imported
			batch.ListingsSkipped = failed
			if err != nil {
				batch.Status = domain.BatchStatusFailed
			} else {
				batch.Status = domain.BatchStatusCompleted
				now := time.Now()
				batch.CompletedAt = &now
			}
			if uerr := batches.Update(ctx, batch); uerr != nil {
				log.Error("batch update failed", slog.Any("error", uerr))
			}
			if err != nil {
				return err
			}

			if archiveDir != "" {
				store, err := storage.NewLocalStorage(archiveDir, log)
				if err != nil {
					return err
				}
				if _, err := store.ArchiveFile(ctx, batch.ID.String(), "input", inputPath); err != nil {
					log.Warn("artifact archive failed", slog.Any("error", err))
				}
			}

			fmt.Printf("Batch %s: imported %d listings, %d failed (of %d groups)\n",
				batch.ID, imported, failed, len(groups))
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Normalized CSV to import (defaults to OUTPUT_PATH)")
	cmd.Flags().StringVar(&archiveDir, "archive-dir", "", "Archive the input under this directory after a successful run")
	cmd.Flags().BoolVar(&useQueue, "queue", false, "Enqueue listings for worker processes instead of importing inline")
	cmd.Flags().BoolVar(&force, "force", false, "Re-import even when this file hash was already completed")

	return cmd
}

// enqueueGroups hands the listing groups to the task queue; workers pick
// them up and the batch stays in importing state until they finish
func enqueueGroups(cmd *cobra.Command, cfg *config.Config, log *slog.Logger, batch *domain.ImportBatch, groups []*domain.ListingGroup) error {
	client := queue.NewAsynqClient(cfg, log)
	defer client.Close()

	enqueued := 0
	for _, group := range groups {
		task, err := queue.NewReconcileListingTask(batch.ID.String(), group)
		if err != nil {
			return err
		}
		if _, err := client.EnqueueContext(cmd.Context(), task); err != nil {
			return err
		}
		enqueued++
	}

	fmt.Printf("Batch %s: enqueued %d listings\n", batch.ID, enqueued)
	return nil
}
