package testutil

import (
	"fmt"
	"time"

	"github.com/newsrelay/newsrelay/core"
)

// Item builds a test item with a deterministic URL derived from slug.
func Item(slug string) core.Item {
	return core.Item{
		Title:       "Story " + slug,
		URL:         fmt.Sprintf("https://example.com/%s", slug),
		Summary:     "Summary of story " + slug + ". It reads plainly.",
		SourceID:    "bbc-news",
		SourceName:  "BBC News",
		PublishedAt: time.Date(2025, 4, 1, 10, 0, 0, 0, time.UTC),
	}
}

// Items builds one test item per slug.
func Items(slugs ...string) []core.Item {
	out := make([]core.Item, 0, len(slugs))
	for _, s := range slugs {
		out = append(out, Item(s))
	}
	return out
}

// Batch builds a result batch for query holding one item per slug.
func Batch(query string, slugs ...string) *core.ResultBatch {
	items := Items(slugs...)
	b := core.NewResultBatch(query, core.SortRecency, len(items), items)
	return &b
}
