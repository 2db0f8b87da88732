// Package search provides the web search clients used by the research
// steps. All clients implement the same narrow Client contract and return
// deduplicated result links.
package search

import (
	"context"

	"github.com/tripflow/tripflow/types"
)

// Client performs a web search and returns result links.
type Client interface {
	Name() string
	Search(ctx context.Context, query string, maxResults int) ([]types.Link, error)
}

// Dedupe removes duplicate URLs preserving order, capped at limit.
func Dedupe(links []types.Link, limit int) []types.Link {
	seen := make(map[string]bool, len(links))
	var out []types.Link
	for _, l := range links {
		if l.URL == "" || seen[l.URL] {
			continue
		}
		seen[l.URL] = true
		out = append(out, l)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
