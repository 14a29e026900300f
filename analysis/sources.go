package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/newsrelay/newsrelay/core"
)

// SourceProfileAnalyzer looks up catalog metadata for the sources appearing
// in the batch.
type SourceProfileAnalyzer struct {
	catalog core.SourceCatalog
}

// NewSourceProfileAnalyzer creates the analyzer over the given catalog.
func NewSourceProfileAnalyzer(catalog core.SourceCatalog) *SourceProfileAnalyzer {
	return &SourceProfileAnalyzer{catalog: catalog}
}

// Kind implements Analyzer.
func (a *SourceProfileAnalyzer) Kind() Kind { return KindSourceProfile }

// Analyze implements Analyzer.
func (a *SourceProfileAnalyzer) Analyze(ctx context.Context, task Task) (any, error) {
	if len(task.Items) == 0 {
		return nil, errNoItems
	}
	if a.catalog == nil {
		return nil, errors.New("no catalog configured")
	}

	seen := map[string]struct{}{}
	ids := make([]string, 0, len(task.Items))
	for _, it := range task.Items {
		if it.SourceID == "" {
			continue
		}
		if _, dup := seen[it.SourceID]; dup {
			continue
		}
		seen[it.SourceID] = struct{}{}
		ids = append(ids, it.SourceID)
	}
	sort.Strings(ids)

	sources, err := a.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources resolved")
	}

	return SourceProfiles{Sources: sources}, nil
}

// SourceCatalogAnalyzer lists the known sources matching the task's filter.
// It is the one kind that takes no items.
type SourceCatalogAnalyzer struct {
	catalog core.SourceCatalog
}

// NewSourceCatalogAnalyzer creates the analyzer over the given catalog.
func NewSourceCatalogAnalyzer(catalog core.SourceCatalog) *SourceCatalogAnalyzer {
	return &SourceCatalogAnalyzer{catalog: catalog}
}

// Kind implements Analyzer.
func (a *SourceCatalogAnalyzer) Kind() Kind { return KindSourceCatalog }

// Analyze implements Analyzer.
func (a *SourceCatalogAnalyzer) Analyze(ctx context.Context, task Task) (any, error) {
	if a.catalog == nil {
		return nil, errors.New("no catalog configured")
	}

	sources, err := a.catalog.List(ctx, task.Filter)
	if err != nil {
		return nil, fmt.Errorf("catalog list: %w", err)
	}
	if len(sources) == 0 {
		return nil, errors.New("no sources matched")
	}

	return CatalogListing{Sources: sources, Count: len(sources), Filter: task.Filter}, nil
}
