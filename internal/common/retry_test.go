package common

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithRetryBackoffSchedule(t *testing.T) {
	var delays []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	attempts := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		return NetworkError("connection reset", nil)
	}, DefaultMaxAttempts, DefaultInitialDelay, sleep)

	if err == nil {
		t.Fatal("expected final error after exhausting attempts")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("delays = %v, want %v", delays, want)
	}
	for i := range want {
		if delays[i] != want[i] {
			t.Errorf("delay[%d] = %v, want %v", i, delays[i], want[i])
		}
	}
}

func TestWithRetryNonRetryableImmediate(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		return ValidationError("amount is required")
	}, DefaultMaxAttempts, DefaultInitialDelay, func(ctx context.Context, d time.Duration) error {
		t.Fatal("sleep should not be called for non-retryable errors")
		return nil
	})

	if err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestWithRetrySucceedsMidway(t *testing.T) {
	attempts := 0
	err := withRetry(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return NetworkError("timeout", nil)
		}
		return nil
	}, DefaultMaxAttempts, DefaultInitialDelay, func(ctx context.Context, d time.Duration) error {
		return nil
	})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"tagged network", NetworkError("upstream down", nil), true},
		{"tagged validation", ValidationError("bad input"), false},
		{"tagged provider rejection", ProviderRejection("no route"), false},
		{"tagged execution rejection", ExecutionRejection("bad payload"), false},
		{"context canceled", context.Canceled, false},
		{"context deadline", context.DeadlineExceeded, false},
		{"foreign timeout message", errors.New("request timed out"), true},
		{"foreign 502", errors.New("upstream returned 502"), true},
		{"foreign insufficient", errors.New("insufficient funds for fee"), false},
		{"foreign unknown", errors.New("something odd"), false},
		// Non-retryable keywords win even when a retryable keyword co-occurs.
		{"mixed keywords", errors.New("invalid response after network timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
