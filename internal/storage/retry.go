package storage

import (
	"context"
	"errors"
	"time"
)

// RetryConfig configures exponential backoff when opening a store
type RetryConfig struct {
	MaxRetries int           // Maximum number of attempts
	BaseDelay  time.Duration // Initial delay between attempts
	MaxDelay   time.Duration // Maximum delay between attempts
	Multiplier float64       // Exponential backoff multiplier
}

// DefaultRetryConfig retries for a little over a second, long enough for
// another process to release a Badger directory lock or a busy SQLite file
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 4,
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2,
	}
}

// OpenWithRetry calls Open until it succeeds, the error is not retryable or
// attempts run out. Only ErrUnavailable is retried.
func OpenWithRetry(ctx context.Context, opts Options, config RetryConfig) (Store, error) {
	return retryWithBackoff(ctx, config, func() (Store, error) {
		return Open(opts)
	})
}

// retryWithBackoff executes fn with exponential backoff. Errors that do not
// wrap ErrUnavailable are returned at once. Retry stops on context cancellation.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var lastErr error
	var zero T
	backoff := config.BaseDelay

	attempts := config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return zero, err
		}

		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}

		if attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(backoff):
				backoff = time.Duration(float64(backoff) * config.Multiplier)
				if backoff > config.MaxDelay {
					backoff = config.MaxDelay
				}
			}
		}
	}

	return zero, lastErr
}
