// Package catalog provides source-metadata stores implementing
// core.SourceCatalog: a volatile in-memory store suited to tests and an
// embedded sqlite store for persistence across restarts. The catalog is
// seeded from the upstream provider at startup and read by the
// source-profile and source-catalog analysis workers.
package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/newsrelay/newsrelay/core"
)

// InMemoryStore is a volatile SourceCatalog implementation storing sources
// in a process local map. It is safe for concurrent access.
type InMemoryStore struct {
	mu      sync.RWMutex
	sources map[string]core.Source
}

// NewInMemoryStore constructs an empty in-memory catalog.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sources: make(map[string]core.Source)}
}

// Upsert inserts or replaces the given sources.
func (s *InMemoryStore) Upsert(_ context.Context, sources []core.Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, src := range sources {
		if src.ID == "" {
			continue
		}
		s.sources[src.ID] = src
	}
	return nil
}

// Lookup returns the sources matching the given IDs, skipping unknown IDs.
func (s *InMemoryStore) Lookup(_ context.Context, ids []string) ([]core.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Source, 0, len(ids))
	for _, id := range ids {
		if src, ok := s.sources[id]; ok {
			out = append(out, src)
		}
	}
	return out, nil
}

// List returns all sources satisfying the filter, ordered by ID.
func (s *InMemoryStore) List(_ context.Context, filter core.SourceFilter) ([]core.Source, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Source, 0, len(s.sources))
	for _, src := range s.sources {
		if filter.Matches(src) {
			out = append(out, src)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of stored sources.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}
