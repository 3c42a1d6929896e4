package guard

import (
	"context"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state.
type BreakerState int

const (
	// BreakerClosed means requests flow normally.
	BreakerClosed BreakerState = iota
	// BreakerOpen means requests are rejected without reaching the backend.
	BreakerOpen
	// BreakerHalfOpen means a limited number of probe requests are allowed
	// through to test whether the backend recovered.
	BreakerHalfOpen
)

// String returns the string representation of the state.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig configures the circuit breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive qualifying failures
	// that opens the circuit.
	// Default: 5
	FailureThreshold int

	// Cooldown is how long the circuit stays open before probing.
	// Default: 30 seconds
	Cooldown time.Duration

	// HalfOpenProbes is the number of requests allowed through while
	// half-open.
	// Default: 1
	HalfOpenProbes int

	// IsFailure decides whether an error counts against the threshold.
	// Default: every non-nil error counts.
	IsFailure func(err error) bool

	// OnStateChange is called when the circuit state changes.
	OnStateChange func(from, to BreakerState)
}

// Breaker implements the circuit breaker pattern for a single backend.
type Breaker struct {
	config BreakerConfig

	mu          sync.Mutex
	state       BreakerState
	failures    int
	probes      int
	lastFailure time.Time
}

// NewBreaker creates a new circuit breaker.
func NewBreaker(config BreakerConfig) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.Cooldown <= 0 {
		config.Cooldown = 30 * time.Second
	}
	if config.HalfOpenProbes <= 0 {
		config.HalfOpenProbes = 1
	}
	if config.IsFailure == nil {
		config.IsFailure = func(err error) bool { return err != nil }
	}

	return &Breaker{
		config: config,
		state:  BreakerClosed,
	}
}

// Allow reports whether a request may proceed. It returns ErrBreakerOpen
// while the circuit is open or the half-open probe budget is spent. A nil
// return must be paired with a later Record call.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.stateLocked() {
	case BreakerOpen:
		return ErrBreakerOpen
	case BreakerHalfOpen:
		if b.probes >= b.config.HalfOpenProbes {
			return ErrBreakerOpen
		}
		b.probes++
	}

	return nil
}

// Cancel settles an Allow whose request was never sent. It frees any
// half-open probe slot the Allow claimed and counts neither success nor
// failure.
func (b *Breaker) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen && b.probes > 0 {
		b.probes--
	}
}

// Record feeds the outcome of an allowed request back into the breaker.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	failed := b.config.IsFailure(err)
	from := b.state

	switch b.state {
	case BreakerClosed:
		if failed {
			b.failures++
			b.lastFailure = time.Now()
			if b.failures >= b.config.FailureThreshold {
				b.state = BreakerOpen
			}
		} else {
			b.failures = 0
		}

	case BreakerHalfOpen:
		if failed {
			// Probe failed: reopen and restart the cooldown.
			b.lastFailure = time.Now()
			b.state = BreakerOpen
		} else {
			b.state = BreakerClosed
			b.failures = 0
		}
	}

	b.notifyLocked(from)
}

// Do runs op through the breaker.
func (b *Breaker) Do(ctx context.Context, op func(context.Context) error) error {
	if err := b.Allow(); err != nil {
		return err
	}

	err := op(ctx)
	b.Record(err)
	return err
}

// State returns the current circuit state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	from := b.state
	b.state = BreakerClosed
	b.failures = 0
	b.probes = 0
	b.notifyLocked(from)
}

// Snapshot reports current breaker counters for diagnostics.
func (b *Breaker) Snapshot() BreakerSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerSnapshot{
		State:       b.stateLocked(),
		Failures:    b.failures,
		LastFailure: b.lastFailure,
	}
}

// BreakerSnapshot contains point-in-time breaker statistics.
type BreakerSnapshot struct {
	State       BreakerState
	Failures    int
	LastFailure time.Time
}

// stateLocked resolves the effective state, promoting open to half-open
// once the cooldown has elapsed. Callers must hold b.mu.
func (b *Breaker) stateLocked() BreakerState {
	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.config.Cooldown {
		from := b.state
		b.state = BreakerHalfOpen
		b.probes = 0
		b.notifyLocked(from)
	}
	return b.state
}

func (b *Breaker) notifyLocked(from BreakerState) {
	if from != b.state && b.config.OnStateChange != nil {
		b.config.OnStateChange(from, b.state)
	}
}
