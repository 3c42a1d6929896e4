// Package cache provides a small TTL keyed byte store.
//
// The domain facade uses it to remember the last successful payload of
// best-effort reads, so a transient backend outage degrades to slightly
// stale data instead of an empty view. Entries expire lazily on access.
package cache
