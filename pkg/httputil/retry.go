package httputil

import (
	"context"
	"time"
)

// RetryConfig holds bounded-retry parameters
type RetryConfig struct {
	// MaxAttempts is the total number of tries, including the first
	MaxAttempts int
	// Backoff is multiplied by the attempt index between attempts
	Backoff time.Duration
	// Retryable decides whether an error is worth another attempt.
	// Nil means IsRetryable.
	Retryable func(error) bool
}

// Retry runs fn up to cfg.MaxAttempts times, sleeping attempt*Backoff
// between attempts. No delay is applied before the first attempt.
// ⭐ SSOT: 行情拉取和交易日探测共用这一个重试入口
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	retryable := cfg.Retryable
	if retryable == nil {
		retryable = IsRetryable
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		// Attempt-indexed backoff, context-aware
		select {
		case <-time.After(time.Duration(attempt) * cfg.Backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return lastErr
}
