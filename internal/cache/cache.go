// Package cache provides the in-memory TTL store that short-circuits
// repeated fetch and search requests.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/insightforge/webintel/internal/fetch"
)

type entry struct {
	value   any
	expires time.Time
}

// Store is a TTL key/value store safe for concurrent use. Entries expire
// lazily on read and eagerly via a periodic sweep. There is no eviction
// beyond TTL; growth is bounded by TTL plus the sweep interval.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	sweepEvery time.Duration
	clock      fetch.Clock
}

// New constructs a Store. A non-positive sweepEvery disables the sweep
// goroutine, leaving lazy expiry only.
func New(sweepEvery time.Duration, clock fetch.Clock) *Store {
	return &Store{
		entries:    make(map[string]entry),
		sweepEvery: sweepEvery,
		clock:      clock,
	}
}

// Start launches the periodic sweep. It returns immediately; the sweep
// stops when ctx is canceled.
func (s *Store) Start(ctx context.Context) {
	if s.sweepEvery <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(s.sweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweep()
			}
		}
	}()
}

// Get returns the value for key if present and unexpired. An expired entry
// is treated as absent and removed.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if s.clock.Now().After(e.expires) {
		s.mu.Lock()
		// Re-check under the write lock; a concurrent Set may have refreshed it.
		if cur, still := s.entries[key]; still && s.clock.Now().After(cur.expires) {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (s *Store) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	s.mu.Lock()
	s.entries[key] = entry{value: value, expires: s.clock.Now().Add(ttl)}
	s.mu.Unlock()
}

// Clear drops every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Len reports the number of live entries, counting unexpired ones only.
func (s *Store) Len() int {
	now := s.clock.Now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.entries {
		if !now.After(e.expires) {
			n++
		}
	}
	return n
}

func (s *Store) sweep() {
	now := s.clock.Now()
	s.mu.Lock()
	for key, e := range s.entries {
		if now.After(e.expires) {
			delete(s.entries, key)
		}
	}
	s.mu.Unlock()
}
