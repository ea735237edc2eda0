package resilience

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned when a breaker rejects a call without invoking
// the operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the circuit breaker mode.
type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig holds per-dependency circuit parameters.
type BreakerConfig struct {
	FailureThreshold  int
	RecoveryTimeout   time.Duration
	SuccessesRequired int
}

// Breaker guards one downstream dependency. Closed counts consecutive
// failures; at the threshold it opens and rejects every call until the
// recovery timeout elapses, then probes in half-open mode. At most
// SuccessesRequired probes may be in flight at once; that many consecutive
// probe successes close the breaker again, and any half-open failure
// reopens it.
type Breaker struct {
	name   string
	cfg    BreakerConfig
	logger *zap.Logger

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	inflight    int
	lastFailure time.Time
	now         func() time.Time
}

// NewBreaker creates a breaker for the named dependency.
func NewBreaker(name string, cfg BreakerConfig, logger *zap.Logger) *Breaker {
	return &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger,
		state:  StateClosed,
		now:    time.Now,
	}
}

// State returns the current mode, accounting for recovery-timeout expiry.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
		return StateHalfOpen
	}
	return b.state
}

// allow reports whether a call may proceed, moving Open to HalfOpen once the
// recovery timeout has elapsed. Half-open admits a call only while the
// in-flight probe budget has room.
func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if b.successes+b.inflight >= b.cfg.SuccessesRequired {
			return false
		}
		b.inflight++
		return true
	case StateOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
			b.state = StateHalfOpen
			b.successes = 0
			b.inflight = 1
			b.logger.Info("circuit breaker half-open", zap.String("dependency", b.name))
			return true
		}
		return false
	}
	return false
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflight > 0 {
		b.inflight--
	}

	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessesRequired {
			b.state = StateClosed
			b.failures = 0
			b.successes = 0
			b.inflight = 0
			b.logger.Info("circuit breaker closed", zap.String("dependency", b.name))
		}
	}
}

func (b *Breaker) onFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.inflight > 0 {
		b.inflight--
	}
	b.lastFailure = b.now()

	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.logger.Warn("circuit breaker open",
				zap.String("dependency", b.name),
				zap.Int("consecutiveFailures", b.failures))
		}
	case StateHalfOpen:
		b.state = StateOpen
		b.successes = 0
		b.logger.Warn("circuit breaker re-opened", zap.String("dependency", b.name))
	}
}

// Execute runs op as one breaker-guarded attempt. Rejected calls return
// ErrCircuitOpen without invoking op.
func (b *Breaker) Execute(op func() error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}
	if err := op(); err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}
