package core

import "context"

// SearchProvider is the upstream news-search boundary. Implementations must
// classify transport failures using the sentinel errors in errors.go so the
// orchestrator can distinguish timeout, connectivity and rate-limit
// conditions.
type SearchProvider interface {
	// Search fetches one batch for the query in the given order. The returned
	// batch reports the upstream total-available count alongside the page of
	// items actually fetched.
	Search(ctx context.Context, query string, sortBy SortMode) (*ResultBatch, error)
}

// SourceCatalog stores news-source metadata for lookup by the analysis
// workers and the read API.
type SourceCatalog interface {
	// Lookup returns the sources matching the given IDs, skipping unknown IDs.
	Lookup(ctx context.Context, ids []string) ([]Source, error)
	// List returns all sources satisfying the filter.
	List(ctx context.Context, filter SourceFilter) ([]Source, error)
	// Upsert inserts or replaces the given sources.
	Upsert(ctx context.Context, sources []Source) error
}
