// Package memory provides an in-memory archive used in tests and when
// no persistent archive is configured.
package memory

import (
	"context"
	"sync"

	"github.com/insightforge/webintel/internal/fetch"
)

// Store keeps produced results in memory.
type Store struct {
	mu       sync.RWMutex
	pages    []*fetch.PageResult
	searches []*fetch.SearchResult
}

// New creates an empty Store.
func New() *Store {
	return &Store{}
}

// SavePage records one page result.
func (s *Store) SavePage(_ context.Context, page *fetch.PageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages = append(s.pages, page)
	return nil
}

// SaveSearch records one search result.
func (s *Store) SaveSearch(_ context.Context, res *fetch.SearchResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searches = append(s.searches, res)
	return nil
}

// Pages returns a copy of the recorded page results.
func (s *Store) Pages() []*fetch.PageResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*fetch.PageResult(nil), s.pages...)
}

// Searches returns a copy of the recorded search results.
func (s *Store) Searches() []*fetch.SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*fetch.SearchResult(nil), s.searches...)
}
