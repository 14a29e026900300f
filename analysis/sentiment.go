package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/newsrelay/newsrelay/scorer"
)

// sentiment thresholds: scores within (-0.05, 0.05) count as neutral.
const sentimentThreshold = 0.05

// SentimentAnalyzer scores the batch's overall sentiment through a
// scorer.Model collaborator (local lexicon by default, LLM backends via
// config).
type SentimentAnalyzer struct {
	model scorer.Model
}

// NewSentimentAnalyzer creates the analyzer; a nil model defaults to the
// built-in lexicon.
func NewSentimentAnalyzer(model scorer.Model) *SentimentAnalyzer {
	if model == nil {
		model = scorer.NewLexicon()
	}
	return &SentimentAnalyzer{model: model}
}

// Kind implements Analyzer.
func (a *SentimentAnalyzer) Kind() Kind { return KindSentiment }

// Analyze implements Analyzer.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, task Task) (any, error) {
	if len(task.Items) == 0 {
		return nil, errNoItems
	}

	texts := make([]string, len(task.Items))
	for i, it := range task.Items {
		texts[i] = itemText(it)
	}

	scores, err := a.model.Score(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("sentiment model: %w", err)
	}
	if len(scores) != len(texts) {
		return nil, errors.New("sentiment model returned wrong score count")
	}

	stats := SentimentStats{}
	var sum float64
	for _, s := range scores {
		sum += s
		switch {
		case s >= sentimentThreshold:
			stats.Positive++
		case s <= -sentimentThreshold:
			stats.Negative++
		default:
			stats.Neutral++
		}
	}
	stats.Score = sum / float64(len(scores))
	stats.Label = sentimentLabel(stats.Score)
	return stats, nil
}

func sentimentLabel(score float64) string {
	switch {
	case score >= sentimentThreshold:
		return "positive"
	case score <= -sentimentThreshold:
		return "negative"
	default:
		return "neutral"
	}
}
