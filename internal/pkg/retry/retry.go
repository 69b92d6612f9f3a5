package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Config holds the parameters for the retry strategy
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Logger      *slog.Logger
}

// Do executes fn with exponential back-off retry logic
func (r *Config) Do(ctx context.Context, operationName string, fn func() error) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	delay := r.BaseDelay

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		if attempt < r.MaxAttempts {
			logger.Warn("operation failed, retrying",
				slog.String("operation", operationName),
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", r.MaxAttempts),
				slog.Duration("delay", delay),
				slog.Any("error", lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}
