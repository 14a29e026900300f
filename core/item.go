package core

import "time"

// SortMode selects the upstream result ordering for a search.
type SortMode string

const (
	// SortRecency orders results newest first. This is the default.
	SortRecency SortMode = "recency"
	// SortRelevance orders results by query relevance.
	SortRelevance SortMode = "relevance"
	// SortPopularity orders results by source popularity.
	SortPopularity SortMode = "popularity"
)

// ParseSortMode maps a client-supplied string onto a SortMode. Unknown or
// empty values fall back to SortRecency.
func ParseSortMode(s string) SortMode {
	switch SortMode(s) {
	case SortRelevance:
		return SortRelevance
	case SortPopularity:
		return SortPopularity
	default:
		return SortRecency
	}
}

// Item is a single news result. Items are immutable once produced by a fetch.
// Identity is the canonical URL: items with an empty URL cannot be
// deduplicated and are treated as always-new.
type Item struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Summary     string    `json:"summary"`
	SourceID    string    `json:"sourceId"`
	SourceName  string    `json:"sourceName"`
	PublishedAt time.Time `json:"publishedAt"`
}

// ResultBatch is one fetch's worth of items plus its metadata. It is owned
// exclusively by the session orchestrator until emitted; emission serializes
// a copy and does not transfer ownership.
type ResultBatch struct {
	Query        string         `json:"query"`
	SortBy       SortMode       `json:"sortBy"`
	TotalResults int            `json:"totalResults"`
	Items        []Item         `json:"items"`
	CreatedAt    time.Time      `json:"createdAt"`
	Analytics    map[string]any `json:"analytics,omitempty"`
}

// NewResultBatch constructs a batch stamped with the current UTC time.
func NewResultBatch(query string, sortBy SortMode, total int, items []Item) ResultBatch {
	return ResultBatch{
		Query:        query,
		SortBy:       sortBy,
		TotalResults: total,
		Items:        items,
		CreatedAt:    time.Now().UTC(),
	}
}

// AttachAnalytics records a completed analytic payload on the batch keyed by
// its kind tag.
func (b *ResultBatch) AttachAnalytics(kind string, payload any) {
	if b.Analytics == nil {
		b.Analytics = map[string]any{}
	}
	b.Analytics[kind] = payload
}

// Source describes the metadata of a news source as reported by the upstream
// catalog.
type Source struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category,omitempty"`
	Language    string `json:"language,omitempty"`
	Country     string `json:"country,omitempty"`
}

// SourceFilter narrows a catalog listing. Empty fields match everything.
type SourceFilter struct {
	Category string `json:"category,omitempty"`
	Language string `json:"language,omitempty"`
	Country  string `json:"country,omitempty"`
}

// Matches reports whether the source satisfies every non-empty filter field.
func (f SourceFilter) Matches(s Source) bool {
	if f.Category != "" && f.Category != s.Category {
		return false
	}
	if f.Language != "" && f.Language != s.Language {
		return false
	}
	if f.Country != "" && f.Country != s.Country {
		return false
	}
	return true
}
