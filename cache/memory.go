package cache

import (
	"sync"
	"time"
)

// Store is an in-memory TTL cache. The zero value is not usable; create
// one with NewStore.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		entries: make(map[string]entry),
	}
}

// Get retrieves a value. Returns (nil, false) on miss or expiry.
func (s *Store) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		// Expired - clean up lazily
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Set stores a value with the given TTL. TTL<=0 means don't cache.
func (s *Store) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	s.entries[key] = entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	s.mu.Unlock()
}

// Delete removes a value. Idempotent - no-op on miss.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// Len returns the number of entries, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
