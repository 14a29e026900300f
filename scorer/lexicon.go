package scorer

import (
	"context"
	"strings"
	"unicode"
)

// Lexicon is the default sentiment backend: a small polarity word list
// scored locally with no network dependency. Each text scores as
// (positive hits - negative hits) / tokens, clamped to [-1, 1].
type Lexicon struct {
	positive map[string]struct{}
	negative map[string]struct{}
}

// NewLexicon builds a lexicon scorer with the built-in word lists.
func NewLexicon() *Lexicon {
	return &Lexicon{positive: toSet(positiveWords), negative: toSet(negativeWords)}
}

// Score implements Model. It never fails; texts without any known token
// score neutral (0).
func (l *Lexicon) Score(_ context.Context, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = l.scoreOne(text)
	}
	return scores, nil
}

func (l *Lexicon) scoreOne(text string) float64 {
	tokens := Tokenize(text)
	if len(tokens) == 0 {
		return 0
	}
	var hits float64
	for _, tok := range tokens {
		if _, ok := l.positive[tok]; ok {
			hits++
		} else if _, ok := l.negative[tok]; ok {
			hits--
		}
	}
	score := hits / float64(len(tokens))
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score
}

// Tokenize lowercases the text and splits it on anything that is not a
// letter or digit. Shared by the lexicon scorer and the word-frequency
// analyzer.
func Tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var positiveWords = []string{
	"advance", "agree", "award", "benefit", "best", "boost", "breakthrough",
	"celebrate", "champion", "confident", "cure", "deal", "discover", "gain",
	"good", "great", "grow", "growth", "help", "hope", "improve", "innovation",
	"launch", "lead", "peace", "positive", "progress", "promising", "raise",
	"rally", "record", "recover", "recovery", "rescue", "rise", "soar",
	"strong", "succeed", "success", "support", "surge", "thrive", "triumph",
	"upgrade", "win", "winner",
}

var negativeWords = []string{
	"attack", "bad", "ban", "blame", "collapse", "concern", "conflict",
	"crash", "crime", "crisis", "cut", "damage", "danger", "dead", "death",
	"decline", "deficit", "delay", "disaster", "disease", "drop", "fail",
	"failure", "fear", "fine", "fire", "fraud", "kill", "lawsuit", "lose",
	"loss", "negative", "outbreak", "panic", "plunge", "poor", "problem",
	"recession", "risk", "scandal", "shortage", "shutdown", "slump", "strike",
	"threat", "victim", "violence", "war", "warn", "warning", "worst",
}
