package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/spf13/cobra"

	"github.com/openlistings/listings-refinery/internal/core/services/addressparse"
	"github.com/openlistings/listings-refinery/internal/core/services/reconcile"
	"github.com/openlistings/listings-refinery/internal/core/services/streettype"
	"github.com/openlistings/listings-refinery/internal/infrastructure/cache"
	"github.com/openlistings/listings-refinery/internal/infrastructure/database"
	"github.com/openlistings/listings-refinery/internal/infrastructure/database/repositories"
	"github.com/openlistings/listings-refinery/internal/infrastructure/queue"
)

func createWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a distributed import worker",
		Long:  `Consumes listing reconcile tasks from Redis. Several workers against the same Redis and database split one large import between them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("worker")
			if err != nil {
				return err
			}

			db, err := database.NewPostgresDB(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := db.Migrate(); err != nil {
				return err
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

			server := queue.NewAsynqServer(cfg, log)
			server.HandleFunc(queue.TaskTypeReconcileListing, func(ctx context.Context, task *asynq.Task) error {
				var payload queue.ReconcileListingPayload
				if err := json.Unmarshal(task.Payload(), &payload); err != nil {
					return fmt.Errorf("payload unmarshal failed: %w", err)
				}
				if payload.Group == nil {
					return fmt.Errorf("task carries no listing group")
				}
				return service.ReconcileListing(ctx, payload.Group)
			})

			// Blocks until SIGTERM/SIGINT; asynq handles the signals
			return server.Start()
		},
	}
}
