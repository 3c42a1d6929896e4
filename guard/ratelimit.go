package guard

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// LimiterConfig configures the rate limiter.
type LimiterConfig struct {
	// PerSecond is the sustained number of operations allowed per second.
	// Default: 10
	PerSecond float64

	// Burst is the maximum burst size.
	// Default: 5
	Burst int

	// WaitOnLimit makes Do wait for a token instead of failing fast.
	// Default: false
	WaitOnLimit bool

	// MaxWait bounds the wait when WaitOnLimit is set.
	// Default: 1 second
	MaxWait time.Duration
}

// Limiter is a token bucket rate limiter.
type Limiter struct {
	config LimiterConfig
	bucket *rate.Limiter
}

// NewLimiter creates a new rate limiter.
func NewLimiter(config LimiterConfig) *Limiter {
	if config.PerSecond <= 0 {
		config.PerSecond = 10
	}
	if config.Burst <= 0 {
		config.Burst = 5
	}
	if config.MaxWait <= 0 {
		config.MaxWait = time.Second
	}

	return &Limiter{
		config: config,
		bucket: rate.NewLimiter(rate.Limit(config.PerSecond), config.Burst),
	}
}

// Allow reports whether one operation may proceed right now.
func (l *Limiter) Allow() bool {
	return l.bucket.Allow()
}

// Wait blocks until a token is available, the wait budget is exhausted,
// or ctx is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.config.MaxWait)
	defer cancel()

	if err := l.bucket.Wait(waitCtx); err != nil {
		// Distinguish caller cancellation from an exhausted wait budget.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrRateLimited
	}
	return nil
}

// Do runs op under the rate limit. Without WaitOnLimit it fails fast with
// ErrRateLimited when no token is available.
func (l *Limiter) Do(ctx context.Context, op func(context.Context) error) error {
	if l.config.WaitOnLimit {
		if err := l.Wait(ctx); err != nil {
			return err
		}
	} else if !l.Allow() {
		return ErrRateLimited
	}

	return op(ctx)
}

// Tokens returns the number of tokens currently available.
func (l *Limiter) Tokens() float64 {
	return l.bucket.Tokens()
}
