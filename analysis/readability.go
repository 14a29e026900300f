package analysis

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/newsrelay/newsrelay/core"
)

// errNoItems short-circuits the readability worker to its fallback without
// invoking the formula collaborator.
var errNoItems = errors.New("no items to score")

// Formula scores a single text for reading ease.
type Formula interface {
	Score(text string) (float64, error)
}

// FleschFormula implements the Flesch reading ease formula:
//
//	206.835 - 1.015*(words/sentences) - 84.6*(syllables/words)
//
// Higher scores read easier; 60-70 is plain English.
type FleschFormula struct{}

// Score implements Formula.
func (FleschFormula) Score(text string) (float64, error) {
	words := fieldsLetters(text)
	if len(words) == 0 {
		return 0, errors.New("no words")
	}

	sentences := countSentences(text)
	syllables := 0
	for _, w := range words {
		syllables += countSyllables(w)
	}

	return 206.835 - 1.015*(float64(len(words))/float64(sentences)) - 84.6*(float64(syllables)/float64(len(words))), nil
}

// ReadabilityAnalyzer scores each item's title and summary plus the batch
// average.
type ReadabilityAnalyzer struct {
	formula Formula
}

// NewReadabilityAnalyzer creates the analyzer; a nil formula defaults to
// Flesch reading ease.
func NewReadabilityAnalyzer(formula Formula) *ReadabilityAnalyzer {
	if formula == nil {
		formula = FleschFormula{}
	}
	return &ReadabilityAnalyzer{formula: formula}
}

// Kind implements Analyzer.
func (a *ReadabilityAnalyzer) Kind() Kind { return KindReadability }

// Analyze implements Analyzer. An empty item list is an error before the
// collaborator is ever invoked.
func (a *ReadabilityAnalyzer) Analyze(_ context.Context, task Task) (any, error) {
	if len(task.Items) == 0 {
		return nil, errNoItems
	}

	stats := ReadabilityStats{Items: make([]ItemScore, 0, len(task.Items))}
	var sum float64
	scored := 0
	for _, it := range task.Items {
		score, err := a.formula.Score(itemText(it))
		if err != nil {
			return nil, err
		}
		stats.Items = append(stats.Items, ItemScore{URL: it.URL, Title: it.Title, Score: score})
		sum += score
		scored++
	}

	stats.Average = sum / float64(scored)
	stats.Level = readingLevel(stats.Average)
	return stats, nil
}

func itemText(it core.Item) string {
	if it.Summary == "" {
		return it.Title
	}
	return it.Title + ". " + it.Summary
}

// readingLevel maps a Flesch score onto its conventional difficulty band.
func readingLevel(score float64) string {
	switch {
	case score >= 90:
		return "very easy"
	case score >= 80:
		return "easy"
	case score >= 70:
		return "fairly easy"
	case score >= 60:
		return "standard"
	case score >= 50:
		return "fairly difficult"
	case score >= 30:
		return "difficult"
	default:
		return "very confusing"
	}
}

func fieldsLetters(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func countSentences(text string) int {
	n := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			n++
		}
	}
	if n == 0 {
		n = 1
	}
	return n
}

// countSyllables approximates syllables by counting vowel groups, dropping a
// trailing silent e. Every word counts at least one.
func countSyllables(word string) int {
	count := 0
	prevVowel := false
	for _, r := range word {
		v := isVowel(r)
		if v && !prevVowel {
			count++
		}
		prevVowel = v
	}
	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u', 'y':
		return true
	}
	return false
}
