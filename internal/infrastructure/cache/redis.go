// Package cache provides the Redis-backed reference-entity id cache. States,
// property types and the other small lookup tables are read for nearly every
// listing; caching their ids keeps the import workers off the database for
// the hot path.
package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

// Entries are refreshed on every write; a day is plenty for tables that
// change a handful of times per import.
const referenceTTL = 24 * time.Hour

// RedisCache wraps the Redis client
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisCache creates a new Redis cache client and verifies the connection
func NewRedisCache(cfg *config.Config, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.Info("redis connection established",
		slog.String("addr", cfg.GetRedisAddr()),
		slog.Int("db", cfg.RedisDB),
	)

	return &RedisCache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	r.logger.Info("closing redis connection")
	return r.client.Close()
}

// Ping checks if Redis is alive
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func cacheKey(kind, key string) string {
	return "ref:" + kind + ":" + key
}

// GetID retrieves a cached reference-entity id. Any Redis failure is treated
// as a miss so the import degrades to database lookups instead of failing.
func (r *RedisCache) GetID(ctx context.Context, kind, key string) (uint, bool) {
	val, err := r.client.Get(ctx, cacheKey(kind, key)).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.Warn("cache read failed", slog.String("kind", kind), slog.Any("error", err))
		}
		return 0, false
	}
	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// SetID stores a reference-entity id. Write failures are logged and dropped.
func (r *RedisCache) SetID(ctx context.Context, kind, key string, id uint) {
	err := r.client.Set(ctx, cacheKey(kind, key), strconv.FormatUint(uint64(id), 10), referenceTTL).Err()
	if err != nil {
		r.logger.Warn("cache write failed", slog.String("kind", kind), slog.Any("error", err))
	}
}

// Flush clears every cached reference id, for use after a suburb merge or a
// manual reference-table edit
func (r *RedisCache) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, "ref:*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}
