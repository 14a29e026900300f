// Package scorer defines the sentiment scoring boundary consumed by the
// sentiment analysis worker. The default backend is a local lexicon; LLM
// backends live in the anthropic and openai subpackages behind the same
// Model interface.
package scorer

import "context"

// Model scores a slice of texts, returning one sentiment value per input in
// the range [-1, 1] (negative to positive). Implementations must never be
// assumed infallible: callers translate every error into a fallback result.
type Model interface {
	Score(ctx context.Context, texts []string) ([]float64, error)
}

// Func adapts a plain function to the Model interface.
type Func func(ctx context.Context, texts []string) ([]float64, error)

// Score implements Model.
func (f Func) Score(ctx context.Context, texts []string) ([]float64, error) {
	return f(ctx, texts)
}
