package retry_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshil0/ai-testing/internal/retry"
)

var errTransient = errors.New("503 service unavailable")

func isTransient(err error) bool { return errors.Is(err, errTransient) }

func fastConfig(attempts int) retry.Config {
	return retry.Config{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 4 * time.Second},
		{1, 8 * time.Second},
		{2, 10 * time.Second},
		{10, 10 * time.Second},
		{100, 10 * time.Second},
		{-1, 4 * time.Second},
	}
	for _, tt := range tests {
		got := retry.Backoff(tt.attempt, 4*time.Second, 10*time.Second)
		assert.Equal(t, tt.want, got, "Backoff(%d)", tt.attempt)
	}
	assert.Equal(t, time.Duration(0), retry.Backoff(3, 0, time.Second))
	assert.Equal(t, 8*time.Millisecond, retry.Backoff(3, time.Millisecond, 0), "no cap when max is zero")
}

func TestDoRecoversAfterTransientFailure(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	got, err := retry.Do(context.Background(), fastConfig(3), "call", isTransient, func(context.Context) (string, error) {
		if calls.Add(1) == 1 {
			return "", errTransient
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, int32(2), calls.Load())
}

func TestDoNonRetryableCalledOnce(t *testing.T) {
	t.Parallel()
	permanent := errors.New("400 bad request")
	var calls atomic.Int32
	_, err := retry.Do(context.Background(), fastConfig(5), "call", isTransient, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, permanent
	})
	require.ErrorIs(t, err, permanent)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoExhaustsAttempts(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	var retries atomic.Int32
	ctx := retry.WithRetryHook(context.Background(), func(string) { retries.Add(1) })
	_, err := retry.Do(ctx, fastConfig(3), "openai:gpt-4o", isTransient, func(context.Context) (int, error) {
		calls.Add(1)
		return 0, errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errTransient)
	assert.Contains(t, err.Error(), "openai:gpt-4o failed after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int32(2), retries.Load())
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour}
	var calls atomic.Int32
	_, err := retry.Do(ctx, cfg, "call", isTransient, func(context.Context) (int, error) {
		calls.Add(1)
		cancel()
		return 0, errTransient
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), calls.Load())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, retry.DefaultConfig().Validate())
	assert.Error(t, retry.Config{MaxAttempts: 0}.Validate())
	assert.Error(t, retry.Config{MaxAttempts: 1, BaseDelay: -time.Second}.Validate())
	assert.Error(t, retry.Config{MaxAttempts: 1, MaxJitter: -time.Second}.Validate())
}
