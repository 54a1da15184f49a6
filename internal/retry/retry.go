// Package retry wraps a single network call with bounded exponential backoff.
package retry

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/chainguard-dev/clog"
)

// Config bounds how a transient failure is retried. MaxAttempts counts the
// first call, so 1 disables retries.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxJitter   time.Duration
}

// DefaultConfig is three attempts waiting 4s then 8s, capped at 10s.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   4 * time.Second,
		MaxDelay:    10 * time.Second,
	}
}

func (c Config) Validate() error {
	if c.MaxAttempts < 1 {
		return errors.New("max attempts must be at least 1")
	}
	if c.BaseDelay < 0 {
		return errors.New("base delay cannot be negative")
	}
	if c.MaxDelay < 0 {
		return errors.New("max delay cannot be negative")
	}
	if c.MaxJitter < 0 {
		return errors.New("max jitter cannot be negative")
	}
	return nil
}

// Backoff returns the wait before retry number attempt (0-based):
// base doubled per attempt, capped at max.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base <= 0 {
		return 0
	}
	// Shifting past 62 bits overflows int64; anything that large is capped anyway.
	if attempt > 30 {
		return max
	}
	d := base << attempt
	if max > 0 && (d > max || d <= 0) {
		return max
	}
	return d
}

// Do calls fn until it succeeds, returns an error isRetryable rejects, or
// cfg.MaxAttempts calls have been made.
func Do[T any](ctx context.Context, cfg Config, operation string, isRetryable func(error) bool, fn func(context.Context) (T, error)) (T, error) {
	attempts := max(cfg.MaxAttempts, 1)

	var (
		out     T
		lastErr error
	)
	for attempt := 0; attempt < attempts; attempt++ {
		out, lastErr = fn(ctx)
		if lastErr == nil {
			return out, nil
		}
		if !isRetryable(lastErr) {
			return out, lastErr
		}
		if attempt == attempts-1 {
			break
		}

		wait := Backoff(attempt, cfg.BaseDelay, cfg.MaxDelay) + jitter(cfg.MaxJitter)
		clog.FromContext(ctx).With("operation", operation).
			With("attempt", attempt+1).
			With("max_attempts", attempts).
			With("backoff", wait).
			With("error", lastErr.Error()).
			Warn("transient failure, retrying")
		if onRetry := retryHook(ctx); onRetry != nil {
			onRetry(operation)
		}

		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-time.After(wait):
		}
	}
	return out, fmt.Errorf("%s failed after %d attempts: %w", operation, attempts, lastErr)
}

func jitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(limit)))
	if err != nil {
		return 0
	}
	return time.Duration(n.Int64())
}

type hookKey struct{}

// WithRetryHook returns a context whose retries call fn with the operation
// name before sleeping. Metrics use it to count retries per provider.
func WithRetryHook(ctx context.Context, fn func(operation string)) context.Context {
	return context.WithValue(ctx, hookKey{}, fn)
}

func retryHook(ctx context.Context) func(string) {
	fn, _ := ctx.Value(hookKey{}).(func(string))
	return fn
}
