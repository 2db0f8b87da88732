package steps

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/llm"
	"github.com/tripflow/tripflow/types"
)

// defaultSuggestionCount is how many destinations discovery offers.
const defaultSuggestionCount = 3

// Discoverer proposes concrete destinations when the user only has a vague
// preference.
type Discoverer interface {
	Suggest(ctx context.Context, info types.ExtractedInfo) ([]types.Suggestion, error)
}

// LLMDiscoverer asks the model for destination suggestions matching the
// user's hint, origin and travel pack.
type LLMDiscoverer struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewLLMDiscoverer creates a discoverer backed by the given provider.
func NewLLMDiscoverer(provider llm.Provider, model string, logger *zap.Logger) *LLMDiscoverer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMDiscoverer{
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("component", "discoverer")),
	}
}

type suggestionWire struct {
	Suggestions []types.Suggestion `json:"suggestions"`
}

// Suggest returns destination suggestions for the user's stated preference.
func (d *LLMDiscoverer) Suggest(ctx context.Context, info types.ExtractedInfo) ([]types.Suggestion, error) {
	var sb strings.Builder
	sb.WriteString("The traveller has not picked a destination yet.\n")
	if info.DestinationHint != "" {
		sb.WriteString("Preference: " + info.DestinationHint + "\n")
	}
	if info.Origin != "" {
		sb.WriteString("Starting from: " + info.Origin + "\n")
	}
	if info.TravelPack != "" {
		sb.WriteString("Travelling as: " + info.TravelPack + "\n")
	}
	if info.Purpose != "" {
		sb.WriteString("Trip purpose: " + info.Purpose + "\n")
	}

	req := &llm.ChatRequest{
		Model:    d.model,
		JSONMode: true,
		Messages: []types.Message{
			types.NewSystemMessage(discoveryPrompt),
			types.NewUserMessage(sb.String()),
		},
	}

	resp, err := d.provider.Completion(ctx, req)
	if err != nil {
		return nil, types.NewError(types.ErrStepFailed, "destination discovery call failed").WithCause(err)
	}

	var wire suggestionWire
	if err := json.Unmarshal([]byte(jsonObject(resp.Content)), &wire); err != nil {
		return nil, types.NewError(types.ErrStepFailed, "discovery returned malformed JSON").WithCause(err)
	}

	out := wire.Suggestions
	if len(out) == 0 {
		return nil, types.NewError(types.ErrStepFailed, "discovery returned no suggestions")
	}
	if len(out) > defaultSuggestionCount {
		out = out[:defaultSuggestionCount]
	}
	d.logger.Debug("destinations suggested", zap.Int("count", len(out)))
	return out, nil
}

func jsonObject(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

const discoveryPrompt = `You suggest travel destinations.

Respond with ONLY a JSON object:
{"suggestions": [{"name": "City, Region", "description": "one sentence on why it fits"}]}

Offer exactly 3 concrete, named destinations matching the traveller's
preferences. Favor places reachable from the stated origin.`
