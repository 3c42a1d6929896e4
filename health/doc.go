// Package health tracks backend reachability.
//
// Monitor runs a periodic connectivity check against the backend and
// exposes the result as a small state machine: unknown until the first
// check starts, checking while one is in flight, then connected or
// disconnected. Callers can force an immediate re-check with Reconnect
// and observe transitions through Subscribe.
package health
