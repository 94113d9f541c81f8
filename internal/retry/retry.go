// Package retry provides backoff-based retries for transient provider failures.
package retry

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/observability"
)

// Policy controls how many times an operation is attempted and how long
// to wait between attempts. Delays grow exponentially from BaseDelay and
// are capped at MaxDelay; setting both equal yields a fixed interval.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy returns the default retry policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Delay returns the backoff duration before attempt n+1. Attempts are
// numbered from zero.
func (p Policy) Delay(attempt int) time.Duration {
	backoff := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if backoff > float64(p.MaxDelay) {
		backoff = float64(p.MaxDelay)
	}
	return time.Duration(backoff)
}

// Do runs fn up to p.MaxAttempts times, sleeping between attempts.
// Only transient errors are retried; any other error returns immediately.
// The context is honored both before each attempt and during backoff.
func Do(ctx context.Context, p Policy, logger *observability.Logger, operation string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		if !domain.IsTransient(err) {
			return err
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		backoff := p.Delay(attempt)
		logger.Warn().
			Str("operation", operation).
			Int("attempt", attempt+1).
			Int("max_attempts", p.MaxAttempts).
			Dur("backoff", backoff).
			Err(err).
			Msg("Transient failure, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, p.MaxAttempts, lastErr)
}
