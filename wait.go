package ddblocal

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"time"
)

// ErrWaitTimeout is returned by Wait when the probe does not succeed
// before the timeout elapses.
var ErrWaitTimeout = errors.New("wait timed out")

// BackoffFunc returns the delay to apply before the given retry attempt.
// Attempts are numbered from zero.
type BackoffFunc func(attempt int) time.Duration

// ExponentialBackoff returns a BackoffFunc that grows the delay by multiplier
// on each attempt, up to max, with full jitter applied to each delay.
func ExponentialBackoff(base time.Duration, multiplier float64, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		d := time.Duration(float64(base) * math.Pow(multiplier, float64(attempt)))
		if d <= 0 || d > max {
			d = max
		}
		// Full jitter: pick uniformly from [0, d].
		return time.Duration(rand.Int64N(int64(d) + 1))
	}
}

// DefaultBackoff is the backoff used for batch write retries: 50ms base,
// doubled per attempt, capped at 5 seconds.
var DefaultBackoff = ExponentialBackoff(50*time.Millisecond, 2.0, 5*time.Second)

// Wait polls probe until it reports done, the timeout elapses, or ctx is
// canceled. The delay between polls is taken from backoff. Probe errors stop
// the wait immediately and are returned as-is; a timeout is reported as
// ErrWaitTimeout.
func Wait(ctx context.Context, timeout time.Duration, backoff BackoffFunc, probe func(context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)

	for attempt := 0; ; attempt++ {
		done, err := probe(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		delay := backoff(attempt)
		if remaining := time.Until(deadline); remaining <= 0 {
			return ErrWaitTimeout
		} else if delay > remaining {
			delay = remaining
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
