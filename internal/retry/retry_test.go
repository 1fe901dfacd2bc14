package retry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maxviazov/gamelog-sync/internal/retry"
)

var errTransient = errors.New("transient")

func noSleep(recorded *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*recorded = append(*recorded, d)
		return nil
	}
}

func TestBackoff_ExponentialCapped(t *testing.T) {
	p := retry.Policy{BaseDelay: time.Second, MaxDelay: 16 * time.Second}
	want := []time.Duration{1, 2, 4, 8, 16, 16}
	for i, w := range want {
		assert.Equal(t, w*time.Second, p.Backoff(i+1), "attempt %d", i+1)
	}
}

func TestBackoff_Linear(t *testing.T) {
	p := retry.Policy{BaseDelay: 1500 * time.Millisecond, Linear: true}
	assert.Equal(t, 1500*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 3*time.Second, p.Backoff(2))
	assert.Equal(t, 4500*time.Millisecond, p.Backoff(3))
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var sleeps []time.Duration
	calls := 0
	p := retry.Policy{MaxAttempts: 5, BaseDelay: time.Second, MaxDelay: 16 * time.Second, Sleep: noSleep(&sleeps)}

	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, sleeps)
}

func TestDo_ExhaustedWrapsLastError(t *testing.T) {
	var sleeps []time.Duration
	calls := 0
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond, Sleep: noSleep(&sleeps)}

	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return errTransient
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 3, calls)
	assert.Len(t, sleeps, 2)
}

func TestDo_NonRetryableShortCircuits(t *testing.T) {
	permanent := errors.New("bad request")
	calls := 0
	p := retry.Policy{
		MaxAttempts: 5,
		Retryable:   func(err error) bool { return errors.Is(err, errTransient) },
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	err := p.Do(context.Background(), func(context.Context, int) error {
		calls++
		return permanent
	})
	assert.Equal(t, permanent, err)
	assert.Equal(t, 1, calls)
}

func TestDo_JitterStaysWithinBound(t *testing.T) {
	var sleeps []time.Duration
	p := retry.Policy{MaxAttempts: 4, BaseDelay: 10 * time.Millisecond, Jitter: 5 * time.Millisecond, Sleep: noSleep(&sleeps)}
	_ = p.Do(context.Background(), func(context.Context, int) error { return errTransient })

	require.Len(t, sleeps, 3)
	for i, d := range sleeps {
		base := p.Backoff(i + 1)
		assert.GreaterOrEqual(t, d, base)
		assert.Less(t, d, base+5*time.Millisecond)
	}
}

func TestDo_ContextCancelledDuringSleep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := retry.Policy{MaxAttempts: 3, BaseDelay: time.Hour}
	err := p.Do(ctx, func(context.Context, int) error { return errTransient })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_OnRetryHook(t *testing.T) {
	var attempts []int
	p := retry.Policy{
		MaxAttempts: 3,
		OnRetry:     func(attempt int, _ time.Duration, _ error) { attempts = append(attempts, attempt) },
		Sleep:       func(context.Context, time.Duration) error { return nil },
	}
	_ = p.Do(context.Background(), func(context.Context, int) error { return errTransient })
	assert.Equal(t, []int{1, 2}, attempts)
}
