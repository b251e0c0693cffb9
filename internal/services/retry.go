package services

import (
	"context"
	"time"
)

// RetryState is the position of a bounded retry loop. Callers start in
// RetryAttempting and leave the loop once it becomes RetrySucceeded or
// RetryFailed.
type RetryState int

const (
	RetryAttempting RetryState = iota
	RetrySucceeded
	RetryFailed
)

// Backoff returns the delay before the retry that follows attempt (0-based):
// base, 2*base, 4*base, ... A positive limit caps the result.
func Backoff(attempt int, base, limit time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 20 {
		attempt = 20
	}
	delay := base << attempt
	if limit > 0 && delay > limit {
		return limit
	}
	return delay
}

// Sleep waits for delay or until ctx is done. A non-nil sleeper replaces the
// timer so tests can record delays without waiting.
func Sleep(ctx context.Context, delay time.Duration, sleeper func(time.Duration)) error {
	if err := ctx.Err(); err != nil || delay <= 0 {
		return err
	}
	if sleeper != nil {
		sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
