// Package memory implements an in-memory snapshot store.
package memory

import (
	"context"
	"sync"

	"github.com/insightforge/webintel/internal/snapshot"
)

// Store keeps markup snapshots in memory, keyed by object path.
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte
	prefix  string
}

// New creates an empty Store.
func New(prefix string) *Store {
	return &Store{objects: map[string][]byte{}, prefix: prefix}
}

// Save stores the markup and returns a mem:// URI.
func (s *Store) Save(_ context.Context, pageURL string, markup []byte) (string, error) {
	path := snapshot.ObjectPath(s.prefix, pageURL, markup)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = append([]byte(nil), markup...)
	return "mem://" + path, nil
}

// Get returns the stored markup for an object path.
func (s *Store) Get(path string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.objects[path]
	return data, ok
}

// Len reports how many snapshots are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
