package guard

import "errors"

// Sentinel errors for guard rejections.
var (
	// ErrBreakerOpen is returned when the circuit breaker is open.
	ErrBreakerOpen = errors.New("guard: circuit open")

	// ErrRateLimited is returned when the rate limit is exceeded.
	ErrRateLimited = errors.New("guard: rate limit exceeded")

	// ErrBulkheadFull is returned when the bulkhead is at capacity.
	ErrBulkheadFull = errors.New("guard: bulkhead at capacity")
)
