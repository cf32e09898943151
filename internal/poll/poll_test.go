package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPollReturnsOnFirstSuccess(t *testing.T) {
	calls := 0
	got, err := Poll(context.Background(), func(ctx context.Context) (string, bool, error) {
		calls++
		return "done", true, nil
	}, 50*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "done" {
		t.Fatalf("value = %q, want %q", got, "done")
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPollSleepsBetweenAttempts(t *testing.T) {
	calls := 0
	start := time.Now()
	_, err := Poll(context.Background(), func(ctx context.Context) (int, bool, error) {
		calls++
		if calls == 3 {
			return 42, true, nil
		}
		return 0, false, nil
	}, 20*time.Millisecond, time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("returned after %s, expected at least two sleeps", elapsed)
	}
}

func TestPollTimeoutCarriesAttempts(t *testing.T) {
	calls := 0
	_, err := Poll(context.Background(), func(ctx context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}, 20*time.Millisecond, 90*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if te.Attempts != calls {
		t.Fatalf("attempts = %d, calls = %d", te.Attempts, calls)
	}
	if te.Attempts < 4 {
		t.Fatalf("attempts = %d, want at least 4 within 90ms at 20ms interval", te.Attempts)
	}
	if te.Elapsed < 90*time.Millisecond {
		t.Fatalf("elapsed = %s, want >= deadline", te.Elapsed)
	}
}

func TestPollRespectsDeadlineBound(t *testing.T) {
	start := time.Now()
	_, err := Poll(context.Background(), func(ctx context.Context) (string, bool, error) {
		return "", false, nil
	}, 10*time.Millisecond, 50*time.Millisecond)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	// One in-flight check plus one sleep of slack beyond the deadline.
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Fatalf("poll overran deadline: %s", elapsed)
	}
}

func TestPollClampsFinalSleepToDeadline(t *testing.T) {
	// Deadline is not a multiple of the interval; the last sleep must be cut
	// short so the loop returns at the deadline, not a full cycle later.
	start := time.Now()
	calls := 0
	_, err := Poll(context.Background(), func(ctx context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}, 60*time.Millisecond, 90*time.Millisecond)
	elapsed := time.Since(start)
	var te *TimeoutError
	if !errors.As(err, &te) {
		t.Fatalf("error = %v, want TimeoutError", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Fatalf("returned after %s, before the deadline", elapsed)
	}
	if elapsed >= 120*time.Millisecond {
		t.Fatalf("returned after %s, a full interval past the 90ms deadline", elapsed)
	}
	if calls != 2 {
		t.Fatalf("calls = %d, want 2 (at 0ms and 60ms)", calls)
	}
}

func TestPollPropagatesCheckError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	_, err := Poll(context.Background(), func(ctx context.Context) (string, bool, error) {
		calls++
		return "", false, boom
	}, 20*time.Millisecond, time.Second)
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want %v", err, boom)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (errors stop the loop immediately)", calls)
	}
}

func TestPollStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := Poll(ctx, func(ctx context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}, time.Second, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestPollChecksCancellationBeforeFirstAttempt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	_, err := Poll(ctx, func(ctx context.Context) (string, bool, error) {
		calls++
		return "", false, nil
	}, 10*time.Millisecond, time.Second)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls != 0 {
		t.Fatalf("calls = %d, want 0", calls)
	}
}
