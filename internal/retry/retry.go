// Package retry is the single backoff discipline shared by every network caller.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/maxviazov/gamelog-sync/internal/config"
)

// ErrExhausted marks a call that kept failing with retryable errors until attempts ran out.
var ErrExhausted = errors.New("retry attempts exhausted")

// Policy describes how many times to try, how long to wait between tries and which errors qualify.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      time.Duration
	Linear      bool

	// Retryable decides whether err deserves another attempt. Nil means "retry everything".
	Retryable func(err error) bool
	// OnRetry is called before each sleep; handy for logging.
	OnRetry func(attempt int, delay time.Duration, err error)
	// Sleep waits for d; tests replace it to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// FromConfig builds a policy from its config section; the predicate is supplied by the caller.
func FromConfig(c config.RetryConfig, retryable func(error) bool) Policy {
	return Policy{
		MaxAttempts: c.MaxAttempts,
		BaseDelay:   c.BaseDelay,
		MaxDelay:    c.MaxDelay,
		Jitter:      c.Jitter,
		Linear:      c.Linear,
		Retryable:   retryable,
	}
}

// Backoff returns the wait before attempt+1, without jitter. attempt starts at 1.
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	var d time.Duration
	if p.Linear {
		d = p.BaseDelay * time.Duration(attempt)
	} else {
		d = p.BaseDelay
		for i := 1; i < attempt; i++ {
			d *= 2
			if p.MaxDelay > 0 && d >= p.MaxDelay {
				break
			}
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

func (p Policy) jitter() time.Duration {
	if p.Jitter <= 0 {
		return 0
	}
	return rand.N(p.Jitter)
}

// Do runs fn until it succeeds, returns a non-retryable error, or attempts run out.
// The exhausted case wraps both ErrExhausted and the last error.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		delay := p.Backoff(attempt) + p.jitter()
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
