package newsrelay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsrelay/newsrelay/config"
	"github.com/newsrelay/newsrelay/core"
	"github.com/newsrelay/newsrelay/scorer"
)

type fakeProvider struct {
	sources []core.Source
}

func (f *fakeProvider) Search(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error) {
	b := core.NewResultBatch(query, sortBy, 0, nil)
	return &b, nil
}

func (f *fakeProvider) Sources(ctx context.Context) ([]core.Source, error) {
	return f.sources, nil
}

// searchOnlyProvider has no source listing.
type searchOnlyProvider struct{}

func (searchOnlyProvider) Search(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error) {
	b := core.NewResultBatch(query, sortBy, 0, nil)
	return &b, nil
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.NewsAPI.APIKey = "test-key"
	return cfg
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil)
	assert.Error(t, err)
}

func TestNew_MintsDistinctOrchestrators(t *testing.T) {
	r, err := New(testConfig(), func(o *Options) {
		o.Provider = &fakeProvider{}
	})
	require.NoError(t, err)
	defer r.Close()

	a := r.NewOrchestrator()
	b := r.NewOrchestrator()
	assert.NotEqual(t, a.ID(), b.ID())
}

func TestSeedCatalog(t *testing.T) {
	provider := &fakeProvider{sources: []core.Source{
		{ID: "wired", Name: "Wired", Category: "technology"},
		{ID: "bbc-news", Name: "BBC News", Category: "general"},
	}}

	r, err := New(testConfig(), func(o *Options) {
		o.Provider = provider
	})
	require.NoError(t, err)
	defer r.Close()

	require.NoError(t, r.SeedCatalog(context.Background()))

	got, err := r.Catalog().List(context.Background(), core.SourceFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSeedCatalog_ProviderWithoutListing(t *testing.T) {
	r, err := New(testConfig(), func(o *Options) {
		o.Provider = searchOnlyProvider{}
	})
	require.NoError(t, err)
	defer r.Close()

	assert.NoError(t, r.SeedCatalog(context.Background()))
}

func TestBuildSentiment_Backends(t *testing.T) {
	lex := buildSentiment(config.SentimentConfig{Backend: config.BackendLexicon})
	assert.IsType(t, &scorer.Lexicon{}, lex)

	// Unknown backends are caught by config validation; the builder itself
	// falls back to the lexicon.
	fallback := buildSentiment(config.SentimentConfig{})
	assert.IsType(t, &scorer.Lexicon{}, fallback)
}
