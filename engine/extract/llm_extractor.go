package extract

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/llm"
	"github.com/tripflow/tripflow/types"
)

// recentUserMessages bounds how much history the extraction prompt sees.
const recentUserMessages = 5

// LLMExtractor asks the model to pull trip slots out of the recent user
// messages, then merges the sanitized result into the current slots.
type LLMExtractor struct {
	provider llm.Provider
	model    string
	logger   *zap.Logger
}

// NewLLMExtractor creates an extractor backed by the given provider.
func NewLLMExtractor(provider llm.Provider, model string, logger *zap.Logger) *LLMExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LLMExtractor{
		provider: provider,
		model:    model,
		logger:   logger.With(zap.String("component", "slot_extractor")),
	}
}

// wireInfo is the JSON shape the extraction prompt asks for.
type wireInfo struct {
	Origin          string `json:"origin"`
	Destination     string `json:"destination"`
	DestinationHint string `json:"destination_hint"`
	DepartureDate   string `json:"departure_date"`
	ReturnDate      string `json:"return_date"`
	DurationDays    int    `json:"duration_days"`
	Purpose         string `json:"trip_purpose"`
	TravelPack      string `json:"travel_pack"`
}

// Extract refreshes the trip slots from the conversation. A model failure
// leaves the current slots untouched and surfaces a typed error so the
// caller can fall back to asking the user directly.
func (e *LLMExtractor) Extract(ctx context.Context, history []types.Message, current types.ExtractedInfo) (types.ExtractedInfo, error) {
	recent := lastUserMessages(history, recentUserMessages)
	if len(recent) == 0 {
		return current, nil
	}

	currentJSON, _ := json.Marshal(current)

	req := &llm.ChatRequest{
		Model:    e.model,
		JSONMode: true,
		Messages: []types.Message{
			types.NewSystemMessage(extractionPrompt),
			types.NewUserMessage(
				"Known so far:\n" + string(currentJSON) +
					"\n\nRecent user messages (oldest first):\n" + strings.Join(recent, "\n")),
		},
	}

	resp, err := e.provider.Completion(ctx, req)
	if err != nil {
		return current, types.NewError(types.ErrExtractionFailed, "slot extraction call failed").WithCause(err)
	}

	var parsed wireInfo
	if err := json.Unmarshal([]byte(jsonBody(resp.Content)), &parsed); err != nil {
		e.logger.Warn("extraction response was not valid JSON", zap.Error(err))
		return current, types.NewError(types.ErrExtractionFailed, "slot extraction returned malformed JSON").WithCause(err)
	}

	merged := Merge(current, types.ExtractedInfo{
		Origin:          parsed.Origin,
		Destination:     parsed.Destination,
		DestinationHint: parsed.DestinationHint,
		DepartureDate:   parsed.DepartureDate,
		ReturnDate:      parsed.ReturnDate,
		DurationDays:    parsed.DurationDays,
		Purpose:         parsed.Purpose,
		TravelPack:      parsed.TravelPack,
	})

	e.logger.Debug("slots extracted",
		zap.Strings("missing", merged.MissingRequired()),
		zap.Bool("has_destination", merged.HasDestination()),
	)
	return merged, nil
}

func lastUserMessages(history []types.Message, n int) []string {
	var out []string
	for i := len(history) - 1; i >= 0 && len(out) < n; i-- {
		if history[i].Role == types.RoleUser {
			out = append(out, "- "+history[i].Content)
		}
	}
	// reverse back to oldest-first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func jsonBody(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

const extractionPrompt = `You extract travel planning details from user messages.

Respond with ONLY a JSON object:
{
  "origin": "departure city or empty string",
  "destination": "a CONCRETE named place the user wants to go, or empty string",
  "destination_hint": "vague destination preference like 'somewhere kid-friendly nearby', or empty string",
  "departure_date": "as stated by the user, or empty string",
  "return_date": "as stated by the user, or empty string",
  "duration_days": 0,
  "trip_purpose": "why they are travelling, or empty string",
  "travel_pack": "who is going (solo, couple, family, friends), or empty string"
}

Rules:
- Never guess. A field the user has not stated stays an empty string (or 0).
- A vague or preference-style destination goes in destination_hint, never in destination.
- Never use placeholder words like "null", "unknown" or "n/a".`
