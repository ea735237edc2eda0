package ratelimit

import (
	"context"
)

// Well-known action names.
const (
	ActionCreate    = "notifications:create"
	ActionBroadcast = "notifications:broadcast"
	ActionUpgrade   = "connections:upgrade"
)

// Registry holds the named policies, built once at startup and passed by
// reference to the components that gate on them.
type Registry struct {
	limiter  *Limiter
	policies map[string]Policy
}

// NewRegistry creates a registry over the limiter with the given policies.
func NewRegistry(limiter *Limiter, policies ...Policy) *Registry {
	m := make(map[string]Policy, len(policies))
	for _, p := range policies {
		m[p.Name] = p
	}
	return &Registry{limiter: limiter, policies: m}
}

// Check applies the named policy to the identifier. Unknown actions allow;
// a missing policy means the action was never configured to be limited.
func (r *Registry) Check(ctx context.Context, action, identifier string) Result {
	policy, ok := r.policies[action]
	if !ok {
		return Result{Allowed: true}
	}
	return r.limiter.Check(ctx, identifier, policy)
}
