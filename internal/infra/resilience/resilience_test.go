package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/WAIRAGU04/tellerpos-africa-spark-63-sub001/internal/infra/resilience"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestRetryWithBackoff_RetriesOnFailure(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     3,
		InitialBackoff: 10 * time.Millisecond,
	}

	callCount := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		callCount++
		if callCount < 3 {
			return errors.New("temporary error")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestRetryWithBackoff_ExhaustsRetries(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     2,
		InitialBackoff: 10 * time.Millisecond,
	}

	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		return errors.New("persistent error")
	})

	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}
}

func TestRetryWithBackoff_ZeroBackoffDoesNotPanic(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 2}

	calls := 0
	_ = resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return errors.New("fail")
	})
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryWithBackoff_PermanentStops(t *testing.T) {
	cfg := resilience.Config{MaxRetries: 5, InitialBackoff: time.Millisecond}
	sentinel := errors.New("bad request")

	calls := 0
	err := resilience.RetryWithBackoff(context.Background(), cfg, func() error {
		calls++
		return resilience.Permanent(sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestRetryWithBackoff_RespectsContext(t *testing.T) {
	cfg := resilience.Config{
		MaxRetries:     5,
		InitialBackoff: 1 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := resilience.RetryWithBackoff(ctx, cfg, func() error {
		return errors.New("error")
	})

	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestBulkhead_AcquireRelease(t *testing.T) {
	bh := resilience.NewBulkhead(2)

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}
	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire, got %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if err := bh.Acquire(ctx); err == nil {
		t.Fatal("expected timeout on third acquire")
	}

	bh.Release()

	if err := bh.Acquire(context.Background()); err != nil {
		t.Fatalf("expected acquire after release, got %v", err)
	}
}

func TestPoll_DoneOnThirdAttempt(t *testing.T) {
	cfg := resilience.PollConfig{Interval: 5 * time.Millisecond, MaxAttempts: 10}

	var seen int
	err := resilience.Poll(context.Background(), cfg, func(_ context.Context, attempt int) (bool, error) {
		seen = attempt
		return attempt == 3, nil
	})
	if err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if seen != 3 {
		t.Errorf("expected 3 attempts, got %d", seen)
	}
}

func TestPoll_Exhausted(t *testing.T) {
	cfg := resilience.PollConfig{Interval: time.Millisecond, MaxAttempts: 4}

	calls := 0
	err := resilience.Poll(context.Background(), cfg, func(context.Context, int) (bool, error) {
		calls++
		return false, nil
	})
	if !errors.Is(err, resilience.ErrPollExhausted) {
		t.Fatalf("expected ErrPollExhausted, got %v", err)
	}
	if calls != 4 {
		t.Errorf("expected 4 calls, got %d", calls)
	}
}

func TestPoll_StopsOnError(t *testing.T) {
	cfg := resilience.PollConfig{Interval: time.Millisecond, MaxAttempts: 10}
	boom := errors.New("boom")

	err := resilience.Poll(context.Background(), cfg, func(context.Context, int) (bool, error) {
		return false, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestPoll_Cancelled(t *testing.T) {
	cfg := resilience.PollConfig{Interval: time.Hour, MaxAttempts: 10}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := resilience.Poll(ctx, cfg, func(context.Context, int) (bool, error) {
		t.Fatal("fn should not run before the first interval")
		return false, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
