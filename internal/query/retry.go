package query

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig bounds the retry loop around a question.
type RetryConfig struct {
	Attempts        int           // total attempts, including the first
	InitialInterval time.Duration // backoff before the second attempt
	MaxInterval     time.Duration // backoff ceiling
}

// DefaultRetryConfig matches the policy used in production: three total
// attempts with exponential backoff from one second, capped at ten.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts:        3,
		InitialInterval: time.Second,
		MaxInterval:     10 * time.Second,
	}
}

// AskWithRetry runs Ask under the engine's retry policy. Every error is
// treated as transient; after the final attempt the last error surfaces
// unchanged in the chain. No partial result is ever synthesized.
func (e *Engine) AskWithRetry(ctx context.Context, question string) (*Result, error) {
	return runWithRetry(ctx, e.retryCfg, func(ctx context.Context) (*Result, error) {
		return e.Ask(ctx, question)
	})
}

func runWithRetry(ctx context.Context, cfg RetryConfig, fn func(context.Context) (*Result, error)) (*Result, error) {
	var lastErr error
	delay := cfg.InitialInterval

	for attempt := 1; attempt <= cfg.Attempts; attempt++ {
		res, err := fn(ctx)
		if err == nil {
			return res, nil
		}
		lastErr = err

		if attempt == cfg.Attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("canceled during retry: %w", ctx.Err())
		case <-time.After(delay):
			delay = min(delay*2, cfg.MaxInterval)
		}
	}

	return nil, fmt.Errorf("after %d attempts: %w", cfg.Attempts, lastErr)
}
