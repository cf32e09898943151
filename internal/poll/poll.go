// Package poll provides a bounded-time polling primitive. Deadline, interval
// and cancellation semantics live here exactly once instead of being rewritten
// inline at every call site.
package poll

import (
	"context"
	"fmt"
	"time"
)

// CheckFunc inspects remote state once. Returning done=true stops the loop
// with the value; a nil error with done=false means "not yet, keep polling";
// any non-nil error stops the loop immediately and is propagated unexamined.
type CheckFunc[T any] func(ctx context.Context) (T, bool, error)

// TimeoutError is returned when the deadline elapses before check reports
// done. It carries the number of attempts made so operators can distinguish a
// slow remote from a misconfigured interval.
type TimeoutError struct {
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("polling timed out after %d attempts in %s", e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// Poll invokes check immediately, then every interval, until check reports
// done, returns an error, ctx is cancelled, or deadline elapses. The sleep
// between attempts is never skipped, but it is clamped to the time left on
// the deadline, so the loop never blocks past it.
func Poll[T any](ctx context.Context, check CheckFunc[T], interval, deadline time.Duration) (T, error) {
	var zero T
	if interval <= 0 {
		interval = time.Second
	}
	if deadline <= 0 {
		deadline = time.Minute
	}

	start := time.Now()
	attempts := 0
	for {
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		attempts++
		v, done, err := check(ctx)
		if err != nil {
			return zero, err
		}
		if done {
			return v, nil
		}

		sleep := interval
		if remaining := deadline - time.Since(start); remaining < sleep {
			if remaining <= 0 {
				return zero, &TimeoutError{Attempts: attempts, Elapsed: time.Since(start)}
			}
			sleep = remaining
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(sleep):
		}

		if elapsed := time.Since(start); elapsed >= deadline {
			return zero, &TimeoutError{Attempts: attempts, Elapsed: elapsed}
		}
	}
}
