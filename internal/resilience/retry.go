// Package resilience provides retry with exponential backoff, used by
// the forwarder while it waits for a freshly spawned daemon to bind its
// socket.
package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// RetryPolicy defines the retry behavior for an operation.
type RetryPolicy struct {
	// MaxRetries is the maximum number of retry attempts (not including
	// the initial call).
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	BaseDelay time.Duration

	// MaxDelay caps the delay between retries.
	MaxDelay time.Duration

	// UseJitter randomizes delays to avoid thundering herds when many
	// forwarders race to reach one daemon.
	UseJitter bool
}

// Retry executes fn until it succeeds, the retries are exhausted, or
// the context ends. It returns the error from the last attempt.
func Retry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	maxAttempts := policy.MaxRetries + 1

	for attempt := range maxAttempts {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Don't delay after the last attempt.
		if attempt < maxAttempts-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(CalculateBackoff(attempt, policy.BaseDelay, policy.MaxDelay, policy.UseJitter)):
			}
		}
	}
	return lastErr
}

// CalculateBackoff calculates the backoff delay for a given attempt.
// The delay grows exponentially: baseDelay * 2^attempt, capped at maxDelay.
func CalculateBackoff(attempt int, baseDelay, maxDelay time.Duration, useJitter bool) time.Duration {
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := baseDelay
	for range attempt {
		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
			break
		}
	}

	// Jitter spreads delays across 0.5x..1.5x of the computed value.
	if useJitter {
		delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
	}
	if delay > maxDelay {
		delay = maxDelay
	}
	return delay
}
