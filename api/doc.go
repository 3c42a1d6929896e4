// Package api is the typed facade over the RelayDesk backend.
//
// Each operation carries an explicit failure policy. Probes like
// CheckHealth never fail. Best-effort reads fall back to an empty value
// (or the last cached good value) and log the error instead of returning
// it. Writes report success as a bool. Primary operations, chat and
// upload, propagate wrapped errors because the caller must know they
// failed.
package api
