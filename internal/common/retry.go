package common

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultMaxAttempts  = 3
	DefaultInitialDelay = time.Second
)

var retryableKeywords = []string{
	"network",
	"timeout",
	"timed out",
	"connection",
	"econnreset",
	"fetch failed",
	"temporarily",
	"too many requests",
	"502",
	"503",
}

var nonRetryableKeywords = []string{
	"insufficient",
	"user rejected",
	"user-rejected",
	"cancelled",
	"canceled",
	"invalid",
	"validation",
	"required",
}

// IsRetryable classifies an error for the retry policy. Tagged errors are
// matched on Kind; foreign errors fall back to message-content heuristics.
// Unclassifiable errors are not retried.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if kind, ok := KindOf(err); ok {
		return kind == KindNetwork
	}

	msg := strings.ToLower(err.Error())
	for _, kw := range nonRetryableKeywords {
		if strings.Contains(msg, kw) {
			return false
		}
	}
	for _, kw := range retryableKeywords {
		if strings.Contains(msg, kw) {
			return true
		}
	}
	return false
}

// WithRetry runs op up to maxAttempts times, backing off exponentially from
// initialDelay (1s, 2s, 4s with the defaults). Non-retryable errors and the
// last attempt's error are returned immediately.
func WithRetry(ctx context.Context, op func(ctx context.Context) error, maxAttempts int, initialDelay time.Duration) error {
	return withRetry(ctx, op, maxAttempts, initialDelay, sleepCtx)
}

func withRetry(ctx context.Context, op func(ctx context.Context) error, maxAttempts int, initialDelay time.Duration, sleep func(ctx context.Context, d time.Duration) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	delay := initialDelay
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == maxAttempts-1 || !IsRetryable(lastErr) {
			return lastErr
		}

		log.Debug().
			Err(lastErr).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("[retry] retrying after transient failure")

		if err := sleep(ctx, delay); err != nil {
			return lastErr
		}
		delay *= 2
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
