package transport

import (
	"math"
	"math/rand/v2"
	"time"
)

// RetryConfig controls the retry loop inside Client.Do.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, the first one included.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the backoff before the second attempt.
	// Default: 1 second
	InitialDelay time.Duration

	// Multiplier grows the delay after each retry.
	// Default: 2
	Multiplier float64

	// MaxDelay caps the backoff. Zero means no cap.
	// Default: 30 seconds
	MaxDelay time.Duration

	// Jitter randomizes each delay by up to 25% in either direction, so
	// a fleet of clients does not retry in lockstep. Default: off, which
	// keeps the schedule deterministic.
	Jitter bool

	// OnRetry is called before each backoff sleep with the attempt that
	// just failed (1-based), its error, and the upcoming delay.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// withDefaults fills in zero fields.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2
	}
	if c.MaxDelay < 0 {
		c.MaxDelay = 0
	}
	return c
}

// Delay returns the backoff after the given failed attempt (0-indexed):
// InitialDelay * Multiplier^attempt, capped at MaxDelay.
func (c RetryConfig) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}

	d := float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(attempt))
	if c.MaxDelay > 0 && d > float64(c.MaxDelay) {
		d = float64(c.MaxDelay)
	}
	// Overflow guard for large attempt counts with no cap.
	if d > float64(math.MaxInt64) {
		d = float64(math.MaxInt64)
	}

	delay := time.Duration(d)
	if c.Jitter {
		delay = jitter(delay)
	}
	return delay
}

// jitter spreads d uniformly over [0.75d, 1.25d].
func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return d
	}
	half := int64(d) / 2
	// #nosec G404 -- backoff spreading, not security
	return time.Duration(int64(d)*3/4 + rand.Int64N(half+1))
}
