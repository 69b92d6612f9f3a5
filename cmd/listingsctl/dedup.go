package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlistings/listings-refinery/internal/infrastructure/cache"
	"github.com/openlistings/listings-refinery/internal/infrastructure/database"
	"github.com/openlistings/listings-refinery/internal/infrastructure/database/repositories"
)

func createDedupSuburbsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dedup-suburbs",
		Short: "Merge duplicate suburb rows",
		Long:  `Collapses suburb rows that collide on the case-insensitive (name, state, postcode) key, re-pointing dependent addresses at the surviving row before deleting the rest`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup("dedup-suburbs")
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			db, err := database.NewPostgresDB(cfg, log)
			if err != nil {
				return err
			}
			defer db.Close()

			refs := repositories.NewReferenceRepository(db.DB, log)
			merged, err := refs.MergeDuplicateSuburbs(ctx)
			if err != nil {
				return err
			}

			// Cached suburb-adjacent ids may now point at deleted rows
			if cfg.CacheEnabled && merged > 0 {
				redisCache, err := cache.NewRedisCache(cfg, log)
				if err == nil {
					defer redisCache.Close()
					if err := redisCache.Flush(ctx); err != nil {
						log.Warn("cache flush failed after merge")
					}
				}
			}

			fmt.Printf("Merged %d duplicate suburb rows\n", merged)
			return nil
		},
	}
}
