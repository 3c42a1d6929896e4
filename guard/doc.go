// Package guard provides client-side guards that sit between the domain
// facade and the transport layer.
//
//   - Breaker: a circuit breaker that fails fast once the backend has
//     produced a run of qualifying failures, then probes for recovery
//     after a cooldown.
//
//   - Limiter: a token bucket rate limiter (built on golang.org/x/time/rate)
//     used to throttle fire-and-forget traffic such as telemetry.
//
//   - Bulkhead: a concurrency cap that keeps expensive operations, such as
//     multipart uploads, from monopolizing connections.
//
// Each guard is independent; the transport and api packages compose them
// where the call pattern warrants it.
package guard
