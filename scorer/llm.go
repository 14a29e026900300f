package scorer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildPrompt renders the shared instruction prompt used by the LLM-backed
// scorers: one sentiment value per numbered snippet, returned as a bare JSON
// array.
func BuildPrompt(texts []string) string {
	var b strings.Builder
	b.WriteString("Rate the sentiment of each numbered news snippet on a scale from -1.0 (very negative) to 1.0 (very positive). ")
	b.WriteString("Reply with only a JSON array of numbers, one per snippet, in order.\n\n")
	for i, t := range texts {
		fmt.Fprintf(&b, "%d. %s\n", i+1, t)
	}
	return b.String()
}

// ParseScores extracts the JSON array from a model reply, tolerating
// surrounding prose or code fences, and checks the expected length.
func ParseScores(text string, want int) ([]float64, error) {
	start := strings.Index(text, "[")
	end := strings.LastIndex(text, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in model reply")
	}

	var scores []float64
	if err := json.Unmarshal([]byte(text[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}
	if len(scores) != want {
		return nil, fmt.Errorf("model returned %d scores, want %d", len(scores), want)
	}
	return scores, nil
}
