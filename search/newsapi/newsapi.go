// Package newsapi implements core.SearchProvider against the NewsAPI.org v2
// API. Transport and protocol failures are classified onto the core sentinel
// errors so the session orchestrator can react per error kind.
package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/newsrelay/newsrelay/core"
	"github.com/newsrelay/newsrelay/logging"
)

// DefaultBaseURL is the production NewsAPI endpoint.
const DefaultBaseURL = "https://newsapi.org/v2"

// Options configures the NewsAPI client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// PageSize bounds the items fetched per search.
	PageSize int
	// RateEvery spaces outbound requests; the developer tier allows
	// roughly one request per second sustained.
	RateEvery time.Duration
	Logger    logging.Logger
}

// Client talks to NewsAPI. Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	pageSize   int
	logger     logging.Logger
}

// New creates a NewsAPI client with the given API key.
func New(apiKey string, optFns ...func(o *Options)) *Client {
	opts := Options{
		BaseURL:    DefaultBaseURL,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		PageSize:   20,
		RateEvery:  time.Second,
		Logger:     logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Client{
		apiKey:     apiKey,
		baseURL:    opts.BaseURL,
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(opts.RateEvery), 1),
		pageSize:   opts.PageSize,
		logger:     opts.Logger,
	}
}

// article is the NewsAPI wire shape for one result.
type article struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
}

type everythingResponse struct {
	Status       string    `json:"status"`
	Code         string    `json:"code"`
	Message      string    `json:"message"`
	TotalResults int       `json:"totalResults"`
	Articles     []article `json:"articles"`
}

type sourcesResponse struct {
	Status  string        `json:"status"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Sources []core.Source `json:"sources"`
}

// Search implements core.SearchProvider via GET /everything.
func (c *Client) Search(ctx context.Context, query string, sortBy core.SortMode) (*core.ResultBatch, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("sortBy", sortParam(sortBy))
	q.Set("pageSize", strconv.Itoa(c.pageSize))

	var decoded everythingResponse
	if err := c.get(ctx, "/everything", q, &decoded); err != nil {
		return nil, err
	}
	if decoded.Status != "ok" {
		return nil, apiError(decoded.Code, decoded.Message)
	}

	items := make([]core.Item, 0, len(decoded.Articles))
	for _, a := range decoded.Articles {
		items = append(items, core.Item{
			Title:       a.Title,
			URL:         a.URL,
			Summary:     a.Description,
			SourceID:    a.Source.ID,
			SourceName:  a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}

	batch := core.NewResultBatch(query, sortBy, decoded.TotalResults, items)
	c.logger.Debug("newsapi search completed", "query", query, "items", len(items), "total", decoded.TotalResults)
	return &batch, nil
}

// Sources fetches the upstream source catalog via GET /top-headlines/sources.
// Used to seed the local catalog at startup.
func (c *Client) Sources(ctx context.Context) ([]core.Source, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}

	var decoded sourcesResponse
	if err := c.get(ctx, "/top-headlines/sources", url.Values{}, &decoded); err != nil {
		return nil, err
	}
	if decoded.Status != "ok" {
		return nil, apiError(decoded.Code, decoded.Message)
	}
	return decoded.Sources, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: http 429", core.ErrRateLimited)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: http %d", core.ErrConnectivity, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		// 4xx other than 429 decodes below; NewsAPI reports the reason in
		// the body's code/message fields.
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", core.ErrMalformed, err)
	}
	return nil
}

// classifyTransport maps transport-level failures onto the core sentinels:
// deadline overruns are timeouts, everything else is connectivity.
func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", core.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", core.ErrConnectivity, err)
}

// apiError maps NewsAPI body-level error codes onto the sentinels.
func apiError(code, message string) error {
	switch code {
	case "rateLimited":
		return fmt.Errorf("%w: %s", core.ErrRateLimited, message)
	default:
		return fmt.Errorf("newsapi: %s: %s", code, message)
	}
}

func sortParam(m core.SortMode) string {
	switch m {
	case core.SortRelevance:
		return "relevancy"
	case core.SortPopularity:
		return "popularity"
	default:
		return "publishedAt"
	}
}
