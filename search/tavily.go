package search

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/types"
)

// TavilyConfig configures the Tavily search client.
type TavilyConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Tavily is a client for the Tavily search API.
type Tavily struct {
	cfg    TavilyConfig
	client *http.Client
	logger *zap.Logger
}

// NewTavily creates a Tavily client.
func NewTavily(cfg TavilyConfig, logger *zap.Logger) *Tavily {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.tavily.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 12 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tavily{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "tavily")),
	}
}

// Name returns the client name.
func (t *Tavily) Name() string { return "tavily" }

// Search queries Tavily and returns deduplicated result links.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]types.Link, error) {
	if maxResults <= 0 {
		maxResults = 8
	}
	payload, err := json.Marshal(map[string]any{
		"api_key":      t.cfg.APIKey,
		"query":        query,
		"max_results":  maxResults,
		"search_depth": "basic",
	})
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to encode search request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.BaseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewError(types.ErrInternalError, "failed to create search request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "tavily search failed").
			WithCause(err).WithRetryable(true)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrUpstreamError, "tavily search failed").
			WithHTTPStatus(resp.StatusCode).WithRetryable(resp.StatusCode >= 500)
	}

	var body struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to read search response").WithCause(err)
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, types.NewError(types.ErrUpstreamError, "failed to decode search response").WithCause(err)
	}

	links := make([]types.Link, 0, len(body.Results))
	for _, r := range body.Results {
		links = append(links, types.Link{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	t.logger.Debug("search complete", zap.String("query", query), zap.Int("results", len(links)))
	return Dedupe(links, maxResults), nil
}
