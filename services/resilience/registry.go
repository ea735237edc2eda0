package resilience

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Well-known dependency names.
const (
	DepEmail = "email"
	DepPush  = "push"
	DepScan  = "scan"
	DepStore = "store"
)

// Registry holds the per-dependency breakers and the shared retry policy.
// Built once at startup and passed by reference; no module-level singletons.
type Registry struct {
	logger   *zap.Logger
	retry    RetryConfig
	defaults BreakerConfig

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry with the shared retry policy and default
// breaker parameters for dependencies registered later.
func NewRegistry(logger *zap.Logger, retry RetryConfig, defaults BreakerConfig) *Registry {
	return &Registry{
		logger:   logger,
		retry:    retry,
		defaults: defaults,
		breakers: make(map[string]*Breaker),
	}
}

// Register creates a breaker for the named dependency with explicit
// parameters, replacing any default-configured one.
func (r *Registry) Register(name string, cfg BreakerConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[name] = NewBreaker(name, cfg, r.logger)
}

// Breaker returns the breaker for the dependency, creating one with default
// parameters on first use.
func (r *Registry) Breaker(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.defaults, r.logger)
		r.breakers[name] = b
	}
	return b
}

// States reports the current mode of every registered breaker, keyed by
// dependency name. Used by the health snapshot.
func (r *Registry) States() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make(map[string]string, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State().String()
	}
	return states
}

// Execute runs op against the named dependency: the whole retry sequence is
// one breaker-guarded attempt, so an exhausted retry counts as a single
// breaker failure rather than MaxAttempts of them.
func (r *Registry) Execute(ctx context.Context, name string, op func(ctx context.Context) error) error {
	breaker := r.Breaker(name)
	return breaker.Execute(func() error {
		return WithRetry(ctx, r.logger, r.retry, op)
	})
}
