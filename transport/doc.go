// Package transport provides a resilient JSON client for the RelayDesk
// backend.
//
// Client.Do sends one logical request and hides the retry mechanics from
// callers. Failures are classified into error kinds (timeout, client,
// server, network, protocol) and only server and network errors are
// retried, with capped exponential backoff between attempts. Each attempt
// gets its own deadline so a stuck connection cannot consume the caller's
// whole budget.
//
// The client cooperates with the guard package: when a circuit breaker is
// configured it is consulted once per logical request, before the first
// attempt, and fed the final outcome.
package transport
