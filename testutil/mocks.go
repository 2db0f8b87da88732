// Package testutil provides shared test doubles for the engine's
// collaborators.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/tripflow/tripflow/llm"
	"github.com/tripflow/tripflow/types"
)

// ScriptedProvider replays a fixed sequence of responses and errors, one
// per Completion call. It records every request it receives.
type ScriptedProvider struct {
	mu        sync.Mutex
	responses []ScriptedResponse
	calls     []*llm.ChatRequest
}

// ScriptedResponse is one step of a provider script.
type ScriptedResponse struct {
	Content string
	Err     error
}

// NewScriptedProvider creates a provider that replays the given script.
// Calls past the end of the script repeat the last entry.
func NewScriptedProvider(script ...ScriptedResponse) *ScriptedProvider {
	return &ScriptedProvider{responses: script}
}

// Name implements llm.Provider.
func (p *ScriptedProvider) Name() string { return "scripted" }

// Completion implements llm.Provider.
func (p *ScriptedProvider) Completion(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.calls = append(p.calls, req)
	if len(p.responses) == 0 {
		return nil, types.NewError(types.ErrUpstreamError, "scripted provider has no responses")
	}
	idx := len(p.calls) - 1
	if idx >= len(p.responses) {
		idx = len(p.responses) - 1
	}
	step := p.responses[idx]
	if step.Err != nil {
		return nil, step.Err
	}
	return &llm.ChatResponse{
		ID:        "scripted",
		Provider:  "scripted",
		Model:     req.Model,
		Content:   step.Content,
		CreatedAt: time.Now(),
	}, nil
}

// Calls returns the recorded requests in order.
func (p *ScriptedProvider) Calls() []*llm.ChatRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*llm.ChatRequest, len(p.calls))
	copy(out, p.calls)
	return out
}

// CallCount returns how many Completion calls were made.
func (p *ScriptedProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

// StubSearch is a search client returning fixed links or a fixed error.
type StubSearch struct {
	Backend string
	Links   []types.Link
	Err     error

	mu      sync.Mutex
	queries []string
}

// Name implements search.Client.
func (s *StubSearch) Name() string {
	if s.Backend == "" {
		return "stub"
	}
	return s.Backend
}

// Search implements search.Client.
func (s *StubSearch) Search(_ context.Context, query string, maxResults int) ([]types.Link, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	links := s.Links
	if len(links) > maxResults {
		links = links[:maxResults]
	}
	return links, nil
}

// Queries returns the recorded search queries.
func (s *StubSearch) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.queries))
	copy(out, s.queries)
	return out
}
