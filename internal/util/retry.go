package util

import (
	"context"
	"math/rand"
	"time"
)

// RetryConfig bounds the backoff schedule for a fallible call.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = 2 * time.Second
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 20 * time.Second
	}
	return c
}

// Retry runs fn up to MaxAttempts times with exponential backoff and
// jitter. Workflow-side calls get this from Temporal retry policies; this
// helper covers direct call sites such as the API's provider requests.
// The last error is returned after attempts are exhausted; a cancelled
// context stops the schedule early.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	cfg = cfg.withDefaults()
	var lastErr error
	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffDelay(cfg, attempt)):
			}
		}
		if lastErr = fn(ctx); lastErr == nil {
			return nil
		}
	}
	return lastErr
}

// backoffDelay doubles the base delay per attempt, caps it at MaxDelay,
// and adds up to 25% jitter.
func backoffDelay(cfg RetryConfig, attempt int) time.Duration {
	delay := cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= cfg.MaxDelay {
			delay = cfg.MaxDelay
			break
		}
	}
	if delay > cfg.MaxDelay {
		delay = cfg.MaxDelay
	}
	jitter := time.Duration(rand.Int63n(int64(delay)/4 + 1))
	return delay + jitter
}
