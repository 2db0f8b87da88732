package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/types"
)

// SerpConfig configures the SerpAPI search client.
type SerpConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Serp is a client for the SerpAPI Google search engine.
type Serp struct {
	cfg    SerpConfig
	client *http.Client
	logger *zap.Logger
}

// NewSerp creates a SerpAPI client.
func NewSerp(cfg SerpConfig, logger *zap.Logger) *Serp {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://serpapi.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Serp{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "serpapi")),
	}
}

// Name returns the client name.
func (s *Serp) Name() string { return "serpapi" }

// Search queries SerpAPI and returns deduplicated organic result links.
func (s *Serp) Search(ctx context.Context, query string, maxResults int) ([]types.Link, error) {
	if maxResults <= 0 {
		maxResults = 8
	}
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("hl", "en")
	q.Set("gl", "us")
	q.Set("api_key", s.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create search request").WithCause(err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "serpapi search failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrUpstreamError, "serpapi search failed").
			WithHTTPStatus(resp.StatusCode).WithRetryable(resp.StatusCode >= 500)
	}

	var body struct {
		OrganicResults []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic_results"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to read search response").WithCause(err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode search response").WithCause(err)
	}

	links := make([]types.Link, 0, len(body.OrganicResults))
	for _, r := range body.OrganicResults {
		links = append(links, types.Link{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	s.logger.Debug("search complete", zap.String("query", query), zap.Int("results", len(links)))
	return Dedupe(links, maxResults), nil
}
