package query

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig() RetryConfig {
	return RetryConfig{Attempts: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
}

func TestRetry_ExhaustionAttemptsExactlyThree(t *testing.T) {
	attempts := 0
	boom := errors.New("backend down")

	_, err := runWithRetry(t.Context(), fastRetryConfig(), func(ctx context.Context) (*Result, error) {
		attempts++
		return nil, boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, attempts)
	assert.Contains(t, err.Error(), "after 3 attempts")
}

func TestRetry_SuccessOnSecondAttempt(t *testing.T) {
	attempts := 0

	res, err := runWithRetry(t.Context(), fastRetryConfig(), func(ctx context.Context) (*Result, error) {
		attempts++
		if attempts < 2 {
			return nil, errors.New("transient")
		}
		return &Result{Answer: "ok"}, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "ok", res.Answer)
}

func TestRetry_FirstSuccessSkipsBackoff(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, InitialInterval: time.Hour, MaxInterval: time.Hour}
	start := time.Now()

	_, err := runWithRetry(t.Context(), cfg, func(ctx context.Context) (*Result, error) {
		return &Result{}, nil
	})

	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestRetry_ContextCanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	attempts := 0

	cfg := RetryConfig{Attempts: 3, InitialInterval: time.Hour, MaxInterval: time.Hour}
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := runWithRetry(ctx, cfg, func(ctx context.Context) (*Result, error) {
		attempts++
		return nil, errors.New("transient")
	})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
