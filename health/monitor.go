package health

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relaydesk/relay-go/observe"
)

// Config configures a Monitor.
type Config struct {
	// Checker probes the backend. Required.
	Checker Checker

	// Interval between periodic checks.
	// Default: 30 seconds
	Interval time.Duration

	// Timeout for a single check.
	// Default: 5 seconds
	Timeout time.Duration

	// Logger receives state transition logs. Default: no logging.
	Logger observe.Logger
}

// Monitor watches backend connectivity in the background.
//
// All checks run in a single goroutine, so a slow check delays the next
// one instead of piling up concurrent probes.
type Monitor struct {
	checker  Checker
	interval time.Duration
	timeout  time.Duration
	logger   observe.Logger

	kick chan struct{}
	stop chan struct{}

	mu      sync.Mutex
	state   State
	subs    map[int]chan State
	nextSub int
	started bool
	closed  bool
}

// NewMonitor creates a Monitor. Start must be called to begin checking.
func NewMonitor(config Config) (*Monitor, error) {
	if config.Checker == nil {
		return nil, fmt.Errorf("health: checker is required")
	}
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}

	return &Monitor{
		checker:  config.Checker,
		interval: config.Interval,
		timeout:  config.Timeout,
		logger:   config.Logger.WithComponent("health"),
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		state:    State{Status: StatusUnknown},
		subs:     make(map[int]chan State),
	}, nil
}

// Start launches the background check loop. The first check runs
// immediately. Calling Start more than once is a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	if m.started || m.closed {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	go m.run(ctx)
}

// run is the check loop. It owns all check execution.
func (m *Monitor) run(ctx context.Context) {
	m.check(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-m.kick:
			m.check(ctx)
			ticker.Reset(m.interval)
		case <-ticker.C:
			m.check(ctx)
		}
	}
}

// check runs one probe, passing through Checking before the result
// settles. The previous result stays visible on the Checking state so
// readers are never without the last known outcome.
func (m *Monitor) check(ctx context.Context) {
	m.mu.Lock()
	checking := m.state
	m.mu.Unlock()
	checking.Status = StatusChecking
	m.setStatus(checking)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	err := m.checker.Check(ctx)
	latency := time.Since(start)

	next := State{
		Status:        StatusConnected,
		LastCheckedAt: time.Now(),
		Latency:       latency,
	}
	if err != nil {
		next.Status = StatusDisconnected
		next.LastError = err
	}

	m.setStatus(next)
}

// setStatus stores the new state and notifies subscribers on transitions.
func (m *Monitor) setStatus(next State) {
	m.mu.Lock()
	prev := m.state
	m.state = next
	var subs []chan State
	if prev.Status != next.Status {
		for _, ch := range m.subs {
			subs = append(subs, ch)
		}
	}
	m.mu.Unlock()

	if prev.Status == next.Status {
		return
	}

	m.logger.Info(context.Background(), "connectivity changed",
		observe.F("from", prev.Status.String()),
		observe.F("to", next.Status.String()),
	)

	for _, ch := range subs {
		select {
		case ch <- next:
		default:
			// Slow subscriber; drop rather than stall the check loop.
		}
	}
}

// State returns the current connectivity snapshot.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reconnect requests an immediate re-check. It never blocks; if a kick is
// already pending the request coalesces with it.
func (m *Monitor) Reconnect() {
	select {
	case m.kick <- struct{}{}:
	default:
	}
}

// Subscribe returns a channel that receives the new state on every status
// transition, and a cancel function that releases the subscription.
// Notifications are dropped, not queued, when the receiver falls behind.
func (m *Monitor) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 4)

	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
	return ch, cancel
}

// Close stops the check loop and releases its timer. Idempotent.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	close(m.stop)
}
