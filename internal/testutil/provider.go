package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/newsrelay/newsrelay/core"
)

// Step is one scripted provider response.
type Step struct {
	Batch *core.ResultBatch
	Err   error
	// Gate, when non-nil, blocks the call until the channel is closed. Lets
	// tests hold a fetch in flight while the session moves on.
	Gate <-chan struct{}
}

// ScriptedProvider replays a fixed sequence of responses; once the script is
// exhausted the last step repeats. Safe for concurrent use.
type ScriptedProvider struct {
	mu    sync.Mutex
	steps []Step
	calls int
}

// NewScriptedProvider creates a provider that replays the given steps.
func NewScriptedProvider(steps ...Step) *ScriptedProvider {
	return &ScriptedProvider{steps: steps}
}

// Search pops the next scripted step.
func (p *ScriptedProvider) Search(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error) {
	p.mu.Lock()
	if len(p.steps) == 0 {
		p.calls++
		p.mu.Unlock()
		return nil, errors.New("scripted provider: no steps configured")
	}
	idx := p.calls
	if idx >= len(p.steps) {
		idx = len(p.steps) - 1
	}
	step := p.steps[idx]
	p.calls++
	p.mu.Unlock()

	if step.Gate != nil {
		select {
		case <-step.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if step.Err != nil {
		return nil, step.Err
	}

	// Re-batch under the caller's query so assertions see what was asked for.
	b := core.NewResultBatch(query, sortBy, step.Batch.TotalResults, step.Batch.Items)
	return &b, nil
}

// Calls reports how many times Search has been invoked.
func (p *ScriptedProvider) Calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

// ProviderFunc adapts a function to core.SearchProvider.
type ProviderFunc func(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error)

// Search invokes the function.
func (f ProviderFunc) Search(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error) {
	return f(ctx, query, sortBy)
}
