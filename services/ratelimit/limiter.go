package ratelimit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Policy describes one fixed-window rate limit.
type Policy struct {
	Name    string
	Window  time.Duration
	Ceiling int64
}

// Result is the outcome of one rate-limit check.
type Result struct {
	Allowed    bool          `json:"allowed"`
	Remaining  int64         `json:"remaining"`
	ResetAt    time.Time     `json:"resetAt"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// CounterStore is the replicated counter backend. Incr increments the counter
// for key and returns the post-increment count; ttl is applied so stale
// windows self-expire.
type CounterStore interface {
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// ttlBuffer is added to the window width so a counter outlives its window
// slightly rather than expiring mid-check.
const ttlBuffer = 5 * time.Second

// Limiter gates actions with fixed-window counting against a shared store.
// Counter-store unavailability fails open: availability over strict
// enforcement.
type Limiter struct {
	store  CounterStore
	logger *zap.Logger
	now    func() time.Time
}

// NewLimiter creates a limiter over the given counter store.
func NewLimiter(store CounterStore, logger *zap.Logger) *Limiter {
	return &Limiter{store: store, logger: logger, now: time.Now}
}

// Check counts one attempt for identifier under the policy and reports
// whether it is allowed. Denials carry a positive RetryAfter hint.
func (l *Limiter) Check(ctx context.Context, identifier string, policy Policy) Result {
	now := l.now()
	windowStart := now.Truncate(policy.Window)
	resetAt := windowStart.Add(policy.Window)

	// The key embeds the window start, so an aged-out window is a fresh key
	// rather than an accumulated counter.
	key := fmt.Sprintf("ratelimit:%s:%s:%d", policy.Name, identifier, windowStart.Unix())

	count, err := l.store.Incr(ctx, key, policy.Window+ttlBuffer)
	if err != nil {
		l.logger.Warn("rate limiter store unavailable, failing open",
			zap.String("policy", policy.Name),
			zap.String("identifier", identifier),
			zap.Error(err))
		return Result{Allowed: true, Remaining: policy.Ceiling, ResetAt: resetAt}
	}

	if count > policy.Ceiling {
		return Result{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}
	}

	return Result{
		Allowed:   true,
		Remaining: policy.Ceiling - count,
		ResetAt:   resetAt,
	}
}
