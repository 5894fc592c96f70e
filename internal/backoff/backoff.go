package backoff

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted wraps the last error once every attempt has been
// spent on a retryable failure.
var ErrRetriesExhausted = errors.New("retries exhausted")

// Clock abstracts time so retry schedules can be tested without real
// delays.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// System returns the real-time clock.
func System() Clock { return systemClock{} }

// Policy is a bounded retry policy: max attempts, exponential backoff
// and a predicate selecting which errors are worth retrying.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Retryable   func(error) bool
}

// Delay returns the backoff before the given retry (0-based): base
// delay doubling each attempt, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		return p.BaseDelay
	}
	// 2^31 seconds is already far beyond any cap.
	if attempt > 30 {
		return p.MaxDelay
	}
	d := p.BaseDelay * time.Duration(1<<attempt)
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn up to MaxAttempts times, sleeping between attempts. A
// non-retryable error returns immediately; exhausting the attempts
// wraps the last error with ErrRetriesExhausted.
func (p Policy) Do(ctx context.Context, clk Clock, fn func() error) error {
	if clk == nil {
		clk = System()
	}

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := clk.Sleep(ctx, p.Delay(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, p.MaxAttempts, lastErr)
}
