// Package queue wraps asynq for the distributed import mode: the import
// command enqueues one task per listing group and worker processes drain the
// queue, so very large exports can be reconciled by several machines sharing
// one Redis.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/openlistings/listings-refinery/internal/core/domain"
	"github.com/openlistings/listings-refinery/internal/pkg/config"
)

// TaskTypeReconcileListing is the task type for one listing group import
const TaskTypeReconcileListing = "listing:reconcile"

// ReconcileListingPayload carries one listing group through Redis
type ReconcileListingPayload struct {
	Batch string               `json:"batch"`
	Group *domain.ListingGroup `json:"group"`
}

// NewReconcileListingTask builds the asynq task for one listing group
func NewReconcileListingTask(batchID string, group *domain.ListingGroup) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcileListingPayload{Batch: batchID, Group: group})
	if err != nil {
		return nil, fmt.Errorf("payload marshal failed: %w", err)
	}
	return asynq.NewTask(TaskTypeReconcileListing, payload, asynq.MaxRetry(3)), nil
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// AsynqClient wraps the Asynq client for enqueuing tasks
type AsynqClient struct {
	client *asynq.Client
	logger *slog.Logger
}

// NewAsynqClient creates a new Asynq client
func NewAsynqClient(cfg *config.Config, logger *slog.Logger) *AsynqClient {
	client := asynq.NewClient(redisOpt(cfg))

	logger.Info("asynq client created", slog.String("redis_addr", cfg.GetRedisAddr()))

	return &AsynqClient{
		client: client,
		logger: logger,
	}
}

// Close closes the Asynq client
func (a *AsynqClient) Close() error {
	a.logger.Info("closing asynq client")
	return a.client.Close()
}

// EnqueueContext enqueues a task with context
func (a *AsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	info, err := a.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		a.logger.Error("failed to enqueue task",
			slog.String("task_type", task.Type()),
			slog.Any("error", err),
		)
		return nil, err
	}

	a.logger.Debug("task enqueued",
		slog.String("task_id", info.ID),
		slog.String("task_type", task.Type()),
		slog.String("queue", info.Queue),
	)

	return info, nil
}

// AsynqServer wraps the Asynq server for processing tasks
type AsynqServer struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *slog.Logger
}

// NewAsynqServer creates a new Asynq server
func NewAsynqServer(cfg *config.Config, logger *slog.Logger) *AsynqServer {
	server := asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.QueueConcurrency,
			Queues: map[string]int{
				"default": 1,
			},

			// Exponential backoff: 2s, 4s, 8s, ...
			RetryDelayFunc: func(n int, e error, t *asynq.Task) time.Duration {
				return time.Duration(1<<uint(n)) * time.Second
			},

			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("task processing failed",
					slog.String("task_type", task.Type()),
					slog.Any("error", err),
				)
			}),

			HealthCheckFunc: func(e error) {
				if e != nil {
					logger.Error("queue health check failed", slog.Any("error", e))
				}
			},
			HealthCheckInterval: 20 * time.Second,

			ShutdownTimeout: 25 * time.Second,
		},
	)

	mux := asynq.NewServeMux()

	logger.Info("asynq server created",
		slog.String("redis_addr", cfg.GetRedisAddr()),
		slog.Int("concurrency", cfg.QueueConcurrency),
	)

	return &AsynqServer{
		server: server,
		mux:    mux,
		logger: logger,
	}
}

// HandleFunc registers a handler function for a task type
func (a *AsynqServer) HandleFunc(pattern string, handler func(context.Context, *asynq.Task) error) {
	a.mux.HandleFunc(pattern, handler)
	a.logger.Debug("handler registered", slog.String("pattern", pattern))
}

// Start runs the Asynq server until Shutdown
func (a *AsynqServer) Start() error {
	a.logger.Info("starting asynq server")
	if err := a.server.Run(a.mux); err != nil {
		return fmt.Errorf("failed to run asynq server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (a *AsynqServer) Shutdown() {
	a.logger.Info("shutting down asynq server")
	a.server.Shutdown()
}
