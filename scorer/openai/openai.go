// Package openai provides a sentiment scorer backed by the OpenAI Chat
// Completions API.
package openai

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"

	"github.com/newsrelay/newsrelay/scorer"
)

// Options configures the OpenAI scorer. Fields mirror a minimal subset of
// Chat Completion parameters; extend via functional options without breaking
// callers.
type Options struct {
	Model               string
	MaxCompletionTokens int64
}

// Scorer wraps the OpenAI Chat Completions API behind the scorer.Model
// interface.
type Scorer struct {
	client *openai.Client
	opts   Options
}

// New creates a new OpenAI scorer using the official client.
func New(optFns ...func(o *Options)) *Scorer {
	client := openai.NewClient()
	return NewFromClient(&client, optFns...)
}

// NewFromClient creates a scorer from an existing client.
func NewFromClient(client *openai.Client, optFns ...func(o *Options)) *Scorer {
	opts := Options{
		Model:               openai.ChatModelGPT4oMini,
		MaxCompletionTokens: 1024,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Scorer{client: client, opts: opts}
}

// Score implements scorer.Model.
func (s *Scorer) Score(ctx context.Context, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to score")
	}

	resp, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: s.opts.Model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(scorer.BuildPrompt(texts)),
		},
		MaxCompletionTokens: openai.Int(s.opts.MaxCompletionTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("openai api error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion")
	}

	return scorer.ParseScores(resp.Choices[0].Message.Content, len(texts))
}
