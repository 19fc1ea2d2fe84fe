package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetrySucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond}, func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustsAndReturnsLastError(t *testing.T) {
	t.Parallel()

	sentinel := errors.New("always fails")
	calls := 0
	err := Retry(context.Background(), RetryPolicy{MaxRetries: 2, BaseDelay: time.Millisecond}, func() error {
		calls++
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("error = %v, want last attempt's error", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want initial + 2 retries", calls)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, RetryPolicy{MaxRetries: 5, BaseDelay: time.Millisecond}, func() error {
		t.Error("fn called after context cancel")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestCalculateBackoff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		attempt int
		base    time.Duration
		max     time.Duration
		want    time.Duration
	}{
		{"first attempt", 0, 100 * time.Millisecond, time.Second, 100 * time.Millisecond},
		{"doubles", 1, 100 * time.Millisecond, time.Second, 200 * time.Millisecond},
		{"quadruples", 2, 100 * time.Millisecond, time.Second, 400 * time.Millisecond},
		{"capped at max", 10, 100 * time.Millisecond, time.Second, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := CalculateBackoff(tt.attempt, tt.base, tt.max, false); got != tt.want {
				t.Errorf("CalculateBackoff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateBackoffJitterStaysBounded(t *testing.T) {
	t.Parallel()

	for range 100 {
		d := CalculateBackoff(3, 100*time.Millisecond, 2*time.Second, true)
		if d < 400*time.Millisecond || d > 1200*time.Millisecond {
			t.Fatalf("jittered delay %v outside [0.5x, 1.5x]", d)
		}
	}
}
