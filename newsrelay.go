// Package newsrelay provides a high-level façade over the relay building
// blocks (search provider, source catalog, sentiment scorer & logging). Most
// applications interact with this package by:
//  1. Creating a Relay via New() from a config (optionally overriding the
//     provider, catalog or scorer)
//  2. Seeding the source catalog once at startup
//  3. Minting one session orchestrator per client connection
//
// The façade wires config onto the underlying packages while keeping setup
// ergonomics concise. Defaults are safe for local development; production
// deployments typically supply a persistent catalog and a structured logger.
package newsrelay

import (
	"context"
	"fmt"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/newsrelay/newsrelay/catalog"
	"github.com/newsrelay/newsrelay/config"
	"github.com/newsrelay/newsrelay/core"
	"github.com/newsrelay/newsrelay/logging"
	"github.com/newsrelay/newsrelay/relay"
	"github.com/newsrelay/newsrelay/scorer"
	anthropicscorer "github.com/newsrelay/newsrelay/scorer/anthropic"
	openaiscorer "github.com/newsrelay/newsrelay/scorer/openai"
	"github.com/newsrelay/newsrelay/search/newsapi"
)

// SourceLister fetches the upstream source catalog. The NewsAPI client
// implements it; a custom provider may not, in which case seeding is skipped.
type SourceLister interface {
	Sources(ctx context.Context) ([]core.Source, error)
}

// Options overrides the config-derived collaborators.
type Options struct {
	// Provider replaces the NewsAPI client built from config.
	Provider core.SearchProvider
	// Catalog replaces the catalog store built from config.
	Catalog core.SourceCatalog
	// Sentiment replaces the scoring model selected by config.
	Sentiment scorer.Model
	Logger    logging.Logger
}

// Relay aggregates the long-lived collaborators shared by all sessions and
// mints one orchestrator per client connection.
type Relay struct {
	cfg       *config.Config
	provider  core.SearchProvider
	catalog   core.SourceCatalog
	sentiment scorer.Model
	logger    logging.Logger
}

// New creates a Relay from the config with optional overrides.
func New(cfg *config.Config, optFns ...func(o *Options)) (*Relay, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}

	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	provider := opts.Provider
	if provider == nil {
		provider = newsapi.New(cfg.NewsAPI.APIKey, func(o *newsapi.Options) {
			if cfg.NewsAPI.BaseURL != "" {
				o.BaseURL = cfg.NewsAPI.BaseURL
			}
			if cfg.NewsAPI.PageSize > 0 {
				o.PageSize = cfg.NewsAPI.PageSize
			}
			if cfg.NewsAPI.RateEvery > 0 {
				o.RateEvery = cfg.NewsAPI.RateEvery
			}
			o.Logger = logger
		})
	}

	cat := opts.Catalog
	if cat == nil {
		var err error
		cat, err = buildCatalog(cfg.Catalog)
		if err != nil {
			return nil, err
		}
	}

	sentiment := opts.Sentiment
	if sentiment == nil {
		sentiment = buildSentiment(cfg.Sentiment)
	}

	return &Relay{
		cfg:       cfg,
		provider:  provider,
		catalog:   cat,
		sentiment: sentiment,
		logger:    logger,
	}, nil
}

func buildCatalog(cfg config.CatalogConfig) (core.SourceCatalog, error) {
	if cfg.Path == "" {
		return catalog.NewInMemoryStore(), nil
	}
	store, err := catalog.NewSQLiteStore(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open source catalog: %w", err)
	}
	return store, nil
}

func buildSentiment(cfg config.SentimentConfig) scorer.Model {
	switch cfg.Backend {
	case config.BackendAnthropic:
		return anthropicscorer.New(func(o *anthropicscorer.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
		})
	case config.BackendOpenAI:
		return openaiscorer.New(func(o *openaiscorer.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
		})
	default:
		return scorer.NewLexicon()
	}
}

// Catalog returns the shared source catalog.
func (r *Relay) Catalog() core.SourceCatalog { return r.catalog }

// NewOrchestrator mints a session orchestrator for one client connection.
// Caller-supplied options are applied after the config-derived ones.
func (r *Relay) NewOrchestrator(optFns ...func(o *relay.Options)) *relay.Orchestrator {
	base := func(o *relay.Options) {
		o.PollInterval = r.cfg.Session.PollInterval
		o.RateLimitedInterval = time.Duration(r.cfg.Session.RateLimitedBackoff) * r.cfg.Session.PollInterval
		o.FetchTimeout = r.cfg.Session.FetchTimeout
		o.WorkerTimeout = r.cfg.Session.WorkerTimeout
		o.SeenCapacity = r.cfg.Session.SeenCapacity
		o.HistoryCapacity = r.cfg.Session.HistoryCapacity
		o.TopWords = r.cfg.Session.TopWords
		o.Catalog = r.catalog
		o.Sentiment = r.sentiment
		o.Logger = r.logger
	}
	return relay.New(r.provider, append([]func(o *relay.Options){base}, optFns...)...)
}

// SeedCatalog refreshes the source catalog from the provider. A provider
// without a source listing is skipped silently; seeding failures are returned
// so the caller can decide whether they are fatal.
func (r *Relay) SeedCatalog(ctx context.Context) error {
	lister, ok := r.provider.(SourceLister)
	if !ok {
		r.logger.Debug("provider exposes no source listing, catalog seeding skipped")
		return nil
	}

	sources, err := lister.Sources(ctx)
	if err != nil {
		return fmt.Errorf("fetch sources: %w", err)
	}
	if err := r.catalog.Upsert(ctx, sources); err != nil {
		return fmt.Errorf("store sources: %w", err)
	}

	r.logger.Info("source catalog seeded", "sources", len(sources))
	return nil
}

// RefreshCatalog reseeds the catalog every interval until ctx is canceled.
// Refresh failures are logged and retried at the next interval.
func (r *Relay) RefreshCatalog(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.SeedCatalog(ctx); err != nil {
				r.logger.Warn("catalog refresh failed", "error", err)
			}
		}
	}
}

// Close releases resources held by the shared collaborators.
func (r *Relay) Close() error {
	if closer, ok := r.catalog.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
