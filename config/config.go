// Package config loads the relay daemon configuration from an optional YAML
// file with environment variable overrides. Every field has a usable default
// so an empty config plus NEWSRELAY_NEWSAPI_KEY is enough to run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	NewsAPI   NewsAPIConfig   `yaml:"newsapi"`
	Session   SessionConfig   `yaml:"session"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// NewsAPIConfig configures the upstream provider.
type NewsAPIConfig struct {
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseUrl"`
	PageSize int    `yaml:"pageSize"`
	// RateEvery spaces outbound requests to stay under the plan's quota.
	RateEvery time.Duration `yaml:"rateEvery"`
}

// SessionConfig tunes per-connection session behavior.
type SessionConfig struct {
	PollInterval time.Duration `yaml:"pollInterval"`
	// RateLimitedBackoff multiplies PollInterval after a rate-limited fetch.
	RateLimitedBackoff int           `yaml:"rateLimitedBackoff"`
	FetchTimeout       time.Duration `yaml:"fetchTimeout"`
	WorkerTimeout      time.Duration `yaml:"workerTimeout"`
	SeenCapacity       int           `yaml:"seenCapacity"`
	HistoryCapacity    int           `yaml:"historyCapacity"`
	TopWords           int           `yaml:"topWords"`
}

// SentimentConfig selects the sentiment scoring backend.
type SentimentConfig struct {
	// Backend is one of lexicon, anthropic, openai.
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
}

// CatalogConfig configures source catalog persistence.
type CatalogConfig struct {
	// Path to the sqlite database. Empty keeps the catalog in memory.
	Path string `yaml:"path"`
	// RefreshInterval between upstream catalog refreshes. Zero disables
	// periodic refresh; the catalog is still seeded once at startup.
	RefreshInterval time.Duration `yaml:"refreshInterval"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or text
}

// Sentiment backend names.
const (
	BackendLexicon   = "lexicon"
	BackendAnthropic = "anthropic"
	BackendOpenAI    = "openai"
)

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		NewsAPI: NewsAPIConfig{
			PageSize:  20,
			RateEvery: time.Second,
		},
		Session: SessionConfig{
			PollInterval:       30 * time.Second,
			RateLimitedBackoff: 4,
			FetchTimeout:       15 * time.Second,
			WorkerTimeout:      10 * time.Second,
			SeenCapacity:       100,
			HistoryCapacity:    10,
			TopWords:           20,
		},
		Sentiment: SentimentConfig{
			Backend: BackendLexicon,
		},
		Catalog: CatalogConfig{
			RefreshInterval: 12 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// non-empty), then NEWSRELAY_* environment overrides, then validation.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays NEWSRELAY_* environment variables.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "NEWSRELAY_ADDR")
	setString(&c.NewsAPI.APIKey, "NEWSRELAY_NEWSAPI_KEY")
	setString(&c.NewsAPI.BaseURL, "NEWSRELAY_NEWSAPI_BASE_URL")
	setDuration(&c.Session.PollInterval, "NEWSRELAY_POLL_INTERVAL")
	setInt(&c.Session.RateLimitedBackoff, "NEWSRELAY_RATE_LIMITED_BACKOFF")
	setInt(&c.Session.SeenCapacity, "NEWSRELAY_SEEN_CAPACITY")
	setInt(&c.Session.HistoryCapacity, "NEWSRELAY_HISTORY_CAPACITY")
	setString(&c.Sentiment.Backend, "NEWSRELAY_SENTIMENT_BACKEND")
	setString(&c.Sentiment.Model, "NEWSRELAY_SENTIMENT_MODEL")
	setString(&c.Catalog.Path, "NEWSRELAY_CATALOG_PATH")
	setString(&c.Log.Level, "NEWSRELAY_LOG_LEVEL")
	setString(&c.Log.Format, "NEWSRELAY_LOG_FORMAT")
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if c.NewsAPI.APIKey == "" {
		return errors.New("newsapi.apiKey is required (or NEWSRELAY_NEWSAPI_KEY)")
	}
	if c.Session.PollInterval <= 0 {
		return errors.New("session.pollInterval must be positive")
	}
	if c.Session.RateLimitedBackoff < 1 {
		return errors.New("session.rateLimitedBackoff must be at least 1")
	}
	switch c.Sentiment.Backend {
	case BackendLexicon, BackendAnthropic, BackendOpenAI:
	default:
		return fmt.Errorf("unknown sentiment backend %q", c.Sentiment.Backend)
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
