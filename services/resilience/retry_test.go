package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func fastRetry(maxAttempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		MaxDelay:    5 * time.Millisecond,
		Multiplier:  2,
	}
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		if calls <= 2 {
			return errors.New("transient")
		}
		return nil
	}

	if err := WithRetry(context.Background(), zap.NewNop(), fastRetry(5), op); err != nil {
		t.Fatalf("WithRetry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestWithRetry_ExhaustsAttempts(t *testing.T) {
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		return errors.New("always failing")
	}

	err := WithRetry(context.Background(), zap.NewNop(), fastRetry(4), op)
	if err == nil {
		t.Fatal("expected error after exhausting attempts")
	}
	if calls != 4 {
		t.Fatalf("calls = %d, want 4", calls)
	}
}

func TestWithRetry_PermanentPropagatesImmediately(t *testing.T) {
	calls := 0
	sentinel := errors.New("malformed input")
	op := func(ctx context.Context) error {
		calls++
		return Permanent(sentinel)
	}

	err := WithRetry(context.Background(), zap.NewNop(), fastRetry(5), op)
	if !errors.Is(err, sentinel) {
		t.Fatalf("err = %v, want wrapped sentinel", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 for non-retryable error", calls)
	}
}

func TestWithRetry_ContextCancelStopsLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	op := func(ctx context.Context) error {
		calls++
		cancel()
		return errors.New("transient")
	}

	err := WithRetry(ctx, zap.NewNop(), fastRetry(5), op)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1", calls)
	}
}

func TestBackoffDelay_CapsAtMaxDelay(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}

	if d := backoffDelay(cfg, 1); d != 100*time.Millisecond {
		t.Fatalf("attempt 1 delay = %s", d)
	}
	if d := backoffDelay(cfg, 2); d != 200*time.Millisecond {
		t.Fatalf("attempt 2 delay = %s", d)
	}
	if d := backoffDelay(cfg, 5); d != 300*time.Millisecond {
		t.Fatalf("attempt 5 delay = %s, want cap", d)
	}
}

func TestBackoffDelay_JitterStaysInRange(t *testing.T) {
	cfg := RetryConfig{BaseDelay: 100 * time.Millisecond, MaxDelay: time.Second, Multiplier: 2, Jitter: true}

	for i := 0; i < 100; i++ {
		d := backoffDelay(cfg, 1)
		if d < 50*time.Millisecond || d > 100*time.Millisecond {
			t.Fatalf("jittered delay %s outside [0.5, 1.0] of base", d)
		}
	}
}
