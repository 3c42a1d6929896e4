package health

import (
	"context"
	"time"
)

// Status is the connectivity state of the backend.
type Status int

const (
	// StatusUnknown means no check has completed yet.
	StatusUnknown Status = iota
	// StatusChecking means a check is in flight. Every cycle passes
	// through it before settling on Connected or Disconnected.
	StatusChecking
	// StatusConnected means the last check succeeded.
	StatusConnected
	// StatusDisconnected means the last check failed.
	StatusDisconnected
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusUnknown:
		return "unknown"
	case StatusChecking:
		return "checking"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	default:
		return "invalid"
	}
}

// State is a point-in-time connectivity snapshot.
type State struct {
	// Status is the current connectivity status.
	Status Status

	// LastError is the error from the most recent failed check, nil while
	// connected.
	LastError error

	// LastCheckedAt is when the most recent check completed. Zero until
	// the first check finishes.
	LastCheckedAt time.Time

	// Latency is how long the most recent check took.
	Latency time.Duration
}

// Checker probes the backend once.
//
// Contract:
// - Concurrency: the monitor serializes calls; implementations need not
//   be safe for concurrent use by the monitor alone.
// - Errors: a nil return means reachable.
type Checker interface {
	Check(ctx context.Context) error
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(ctx context.Context) error

var _ Checker = CheckerFunc(nil)

// Check implements Checker.
func (f CheckerFunc) Check(ctx context.Context) error {
	return f(ctx)
}
