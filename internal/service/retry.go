package service

import (
	"context"
	"time"

	"lexindex/internal/domain"
)

// RetryConfig bounds retries of transient backend failures at the
// orchestrator boundary. Empty documents and dimension mismatches are
// never retried; they fail the same way every time.
type RetryConfig struct {
	// MaxAttempts includes the initial attempt.
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

func (c *RetryConfig) applyDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 200 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
}

func (s *IndexService) withRetry(ctx context.Context, op string, fn func() error) error {
	delay := s.retry.InitialDelay
	var lastErr error
	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !domain.Retryable(lastErr) || attempt == s.retry.MaxAttempts {
			return lastErr
		}
		s.log.Warn("transient backend failure, retrying",
			"op", op, "attempt", attempt, "cause", lastErr)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > s.retry.MaxDelay {
			delay = s.retry.MaxDelay
		}
	}
	return lastErr
}
