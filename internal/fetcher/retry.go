package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Retryer reruns transient failures with multiplicative backoff. A blocking
// classification is returned immediately without consuming the budget;
// retrying into an anti-bot wall only raises the signal.
type Retryer struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Logger     *slog.Logger
}

// Do runs fn until it succeeds, exhausts the retry budget, hits a blocking
// classification, or the context ends.
func (r Retryer) Do(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	attempts := r.MaxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	base := r.BaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrBlocked) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		lastErr = err
		if attempt == attempts-1 {
			break
		}
		delay := backoffDelay(base, attempt, r.MaxDelay)
		if r.Logger != nil {
			r.Logger.Warn("retrying after failure",
				"op", name,
				"attempt", attempt+1,
				"delay", delay.String(),
				"error", err,
			)
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, attempts, lastErr)
}

// backoffDelay grows the base delay by 1.5x per attempt plus up to 30% jitter.
func backoffDelay(base time.Duration, attempt int, max time.Duration) time.Duration {
	d := float64(base) * math.Pow(1.5, float64(attempt))
	d += d * 0.3 * rand.Float64()
	if max > 0 && time.Duration(d) > max {
		return max
	}
	return time.Duration(d)
}
