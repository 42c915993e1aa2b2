// Package retry provides a bounded exponential-backoff wrapper applied
// uniformly around remote API calls.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

// Policy configures retry behavior for an operation.
type Policy struct {
	MaxAttempts int           // Total attempts, including the first
	BaseDelay   time.Duration // Delay before the second attempt (doubles each retry)
	MaxDelay    time.Duration // Cap on the backoff delay
	Multiplier  float64       // Backoff growth factor
	Retryable   func(error) bool
	Logger      *zap.Logger
}

// DefaultPolicy returns the policy used for all GitLab API calls:
// 5 attempts with exponential backoff from 1s, capped at 10s.
func DefaultPolicy(retryable func(error) bool, logger *zap.Logger) Policy {
	return Policy{
		MaxAttempts: 5,
		BaseDelay:   1 * time.Second,
		MaxDelay:    10 * time.Second,
		Multiplier:  2,
		Retryable:   retryable,
		Logger:      logger,
	}
}

// Do executes fn, retrying on retryable errors until the policy's attempts
// are exhausted. It returns nil on the first success, the last error on
// exhaustion, and the context error if ctx is cancelled between attempts.
func Do(ctx context.Context, p Policy, op string, fn func(ctx context.Context) error) error {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.Multiplier <= 1 {
		p.Multiplier = 2
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			if attempt > 0 && p.Logger != nil {
				p.Logger.Info("retry succeeded",
					zap.String("op", op),
					zap.Int("attempt", attempt+1))
			}
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := backoff(p, attempt)
		if p.Logger != nil {
			p.Logger.Warn("attempt failed, retrying",
				zap.String("op", op),
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", p.MaxAttempts),
				zap.Duration("backoff", delay),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("%s: retries exhausted after %d attempts: %w", op, p.MaxAttempts, lastErr)
}

func backoff(p Policy, attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	return time.Duration(d)
}
