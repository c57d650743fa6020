package ddblocal

import (
	"context"
	"errors"
	"testing"
	"time"
)

func constantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

func TestWaitSucceeds(t *testing.T) {
	attempts := 0
	err := Wait(context.Background(), time.Second, constantBackoff(time.Millisecond), func(context.Context) (bool, error) {
		attempts++
		return attempts >= 3, nil
	})
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
}

func TestWaitTimesOut(t *testing.T) {
	const timeout = 100 * time.Millisecond

	begin := time.Now()
	err := Wait(context.Background(), timeout, constantBackoff(10*time.Millisecond), func(context.Context) (bool, error) {
		return false, nil
	})
	elapsed := time.Since(begin)

	if !errors.Is(err, ErrWaitTimeout) {
		t.Fatalf("expected ErrWaitTimeout, got %v", err)
	}
	if elapsed > timeout+time.Second {
		t.Errorf("Wait took %s, expected roughly the %s timeout", elapsed, timeout)
	}
}

func TestWaitProbeError(t *testing.T) {
	probeErr := errors.New("probe failed")

	err := Wait(context.Background(), time.Second, constantBackoff(time.Millisecond), func(context.Context) (bool, error) {
		return false, probeErr
	})
	if !errors.Is(err, probeErr) {
		t.Errorf("expected probe error to return as-is, got %v", err)
	}
}

func TestWaitContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Wait(ctx, time.Second, constantBackoff(50*time.Millisecond), func(context.Context) (bool, error) {
		return false, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestExponentialBackoffStaysWithinCap(t *testing.T) {
	const limit = 200 * time.Millisecond
	backoff := ExponentialBackoff(10*time.Millisecond, 2.0, limit)

	for attempt := 0; attempt < 20; attempt++ {
		d := backoff(attempt)
		if d < 0 || d > limit {
			t.Errorf("attempt %d: delay %s outside [0, %s]", attempt, d, limit)
		}
	}
}

func TestExponentialBackoffOverflow(t *testing.T) {
	backoff := ExponentialBackoff(time.Second, 10.0, 5*time.Second)

	// Large attempt counts overflow the multiplication; the cap must hold.
	if d := backoff(1000); d < 0 || d > 5*time.Second {
		t.Errorf("overflowed delay %s escaped the cap", d)
	}
}
