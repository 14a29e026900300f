package analysis

import (
	"context"
	"sort"

	"github.com/newsrelay/newsrelay/scorer"
)

// DefaultTopWords bounds the word-frequency table size.
const DefaultTopWords = 20

// WordStatsAnalyzer counts word frequencies over the batch's titles and
// summaries, excluding stopwords.
type WordStatsAnalyzer struct {
	top int
}

// NewWordStatsAnalyzer creates the analyzer keeping the top n words
// (DefaultTopWords when n <= 0).
func NewWordStatsAnalyzer(top int) *WordStatsAnalyzer {
	if top <= 0 {
		top = DefaultTopWords
	}
	return &WordStatsAnalyzer{top: top}
}

// Kind implements Analyzer.
func (a *WordStatsAnalyzer) Kind() Kind { return KindWordStats }

// Analyze implements Analyzer.
func (a *WordStatsAnalyzer) Analyze(_ context.Context, task Task) (any, error) {
	if len(task.Items) == 0 {
		return nil, errNoItems
	}

	counts := map[string]int{}
	total := 0
	for _, it := range task.Items {
		for _, tok := range scorer.Tokenize(itemText(it)) {
			if len(tok) < 3 {
				continue
			}
			if _, skip := stopwords[tok]; skip {
				continue
			}
			counts[tok]++
			total++
		}
	}

	words := make([]WordCount, 0, len(counts))
	for w, c := range counts {
		words = append(words, WordCount{Word: w, Count: c})
	}
	// Highest count first; ties alphabetical for deterministic output.
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > a.top {
		words = words[:a.top]
	}

	return WordStats{Words: words, TotalWords: total}, nil
}

var stopwords = func() map[string]struct{} {
	list := []string{
		"about", "after", "all", "also", "and", "any", "are", "been", "before",
		"but", "can", "could", "did", "for", "from", "had", "has", "have",
		"her", "him", "his", "how", "into", "its", "just", "more", "most",
		"new", "not", "now", "off", "one", "our", "out", "over", "said",
		"say", "says", "she", "than", "that", "the", "their", "them", "then",
		"there", "they", "this", "two", "was", "were", "what", "when",
		"which", "who", "why", "will", "with", "would", "you", "your",
	}
	set := make(map[string]struct{}, len(list))
	for _, w := range list {
		set[w] = struct{}{}
	}
	return set
}()
