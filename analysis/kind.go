package analysis

import "github.com/newsrelay/newsrelay/core"

// Kind tags one analytic dimension. Kind values double as outbound event
// types: each completed worker reply is forwarded to the client under its
// kind tag.
type Kind string

const (
	// KindReadability scores per-item and batch-average reading ease.
	KindReadability Kind = "readability"
	// KindSentiment scores the batch's overall sentiment.
	KindSentiment Kind = "sentiment"
	// KindWordStats counts word frequencies over the batch.
	KindWordStats Kind = "word_stats"
	// KindSourceProfile looks up metadata for the batch's sources.
	KindSourceProfile Kind = "source_profile"
	// KindSourceCatalog lists known sources matching an optional filter.
	KindSourceCatalog Kind = "source_catalog"
)

// Kinds returns all worker kinds in a stable order.
func Kinds() []Kind {
	return []Kind{KindReadability, KindSentiment, KindWordStats, KindSourceProfile, KindSourceCatalog}
}

// Task is one unit of work dispatched to a worker. Items carries the batch
// to analyze; Filter is only meaningful for the source-catalog kind, which
// takes no items. Gen echoes the session's search generation so stale
// replies can be suppressed.
type Task struct {
	Kind   Kind
	Items  []core.Item
	Filter core.SourceFilter
	Gen    uint64
}

// Result is the reply payload for one completed task. Valid is false when
// the collaborator failed and Data holds the kind's fallback payload.
type Result struct {
	Kind  Kind   `json:"kind"`
	Valid bool   `json:"valid"`
	Gen   uint64 `json:"-"`
	Data  any    `json:"data"`
}

// Crash describes a worker panic. Reason carries the recovered value; Stack
// a snapshot of the worker goroutine's stack.
type Crash struct {
	Kind   Kind
	Reason any
	Stack  []byte
}

// Reply is what a worker posts back to its session: either a Result or, on
// panic, a Crash. Exactly one reply is produced per accepted task.
type Reply struct {
	Kind   Kind
	Result Result
	Crash  *Crash
}

// ItemScore is one item's readability score.
type ItemScore struct {
	URL   string  `json:"url"`
	Title string  `json:"title"`
	Score float64 `json:"score"`
}

// ReadabilityStats is the readability worker's payload: one score per item
// plus the batch average, both Flesch reading ease.
type ReadabilityStats struct {
	Average float64     `json:"average"`
	Level   string      `json:"level"`
	Items   []ItemScore `json:"items"`
}

// SentimentStats is the sentiment worker's payload.
type SentimentStats struct {
	Score    float64 `json:"score"`
	Label    string  `json:"label"`
	Positive int     `json:"positive"`
	Negative int     `json:"negative"`
	Neutral  int     `json:"neutral"`
}

// WordCount is one entry of the word-frequency table.
type WordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

// WordStats is the word-frequency worker's payload.
type WordStats struct {
	Words      []WordCount `json:"words"`
	TotalWords int         `json:"totalWords"`
}

// SourceProfiles is the source-profile worker's payload.
type SourceProfiles struct {
	Sources []core.Source `json:"sources"`
}

// CatalogListing is the source-catalog worker's payload.
type CatalogListing struct {
	Sources []core.Source     `json:"sources"`
	Count   int               `json:"count"`
	Filter  core.SourceFilter `json:"filter,omitempty"`
}

// Fallback returns the well-defined degraded payload for a kind, tagged
// invalid: zeroed scores, neutral sentiment, empty lists.
func Fallback(kind Kind, gen uint64) Result {
	var data any
	switch kind {
	case KindReadability:
		data = ReadabilityStats{Level: "unknown", Items: []ItemScore{}}
	case KindSentiment:
		data = SentimentStats{Label: "neutral"}
	case KindWordStats:
		data = WordStats{Words: []WordCount{}}
	case KindSourceProfile:
		data = SourceProfiles{Sources: []core.Source{}}
	case KindSourceCatalog:
		data = CatalogListing{Sources: []core.Source{}}
	}
	return Result{Kind: kind, Valid: false, Gen: gen, Data: data}
}
