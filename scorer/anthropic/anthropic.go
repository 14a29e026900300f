// Package anthropic provides a sentiment scorer backed by the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/newsrelay/newsrelay/scorer"
)

// Options configures the Anthropic scorer (model id, max tokens, API key).
type Options struct {
	Model     anthropic.Model
	MaxTokens int64
	APIKey    string
}

// Scorer wraps the Anthropic Messages API behind the scorer.Model interface.
type Scorer struct {
	client *anthropic.Client
	opts   Options
}

// New creates a new Anthropic scorer using the official client.
func New(optFns ...func(o *Options)) *Scorer {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	var clientOpts []option.RequestOption
	if opts.APIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(opts.APIKey))
	}

	client := anthropic.NewClient(clientOpts...)

	return &Scorer{client: &client, opts: opts}
}

// NewFromClient creates a scorer from an existing client.
func NewFromClient(client *anthropic.Client, optFns ...func(o *Options)) *Scorer {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	return &Scorer{client: client, opts: opts}
}

func defaultOptions() Options {
	return Options{
		Model:     anthropic.ModelClaude3_5Haiku20241022,
		MaxTokens: 1024,
	}
}

// Score implements scorer.Model. It asks the model for one sentiment value
// per text as a bare JSON array and parses the reply.
func (s *Scorer) Score(ctx context.Context, texts []string) ([]float64, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts to score")
	}

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.opts.Model,
		MaxTokens: s.opts.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(scorer.BuildPrompt(texts))),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic api error: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text += block.AsText().Text
		}
	}

	return scorer.ParseScores(text, len(texts))
}
