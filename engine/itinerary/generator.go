package itinerary

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/llm"
	"github.com/tripflow/tripflow/types"
)

// DefaultMaxAttempts bounds the generation loop: one initial attempt plus
// two retries with violation feedback.
const DefaultMaxAttempts = 3

// Facts are the assembled research results and trip metadata the authoring
// call works from.
type Facts struct {
	Summary    types.TripSummary `json:"trip"`
	Transport  *types.Patch      `json:"transport,omitempty"`
	Stays      *types.Patch      `json:"stays,omitempty"`
	Activities *types.Patch      `json:"activities,omitempty"`
}

// Generator wraps the authoring collaborator with schema validation and a
// bounded retry-with-feedback loop. Exhausting retries is terminal for the
// turn: no partially valid itinerary is ever returned.
type Generator struct {
	provider    llm.Provider
	model       string
	maxAttempts int
	logger      *zap.Logger
}

// NewGenerator creates a generator with the default attempt budget.
func NewGenerator(provider llm.Provider, model string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		provider:    provider,
		model:       model,
		maxAttempts: DefaultMaxAttempts,
		logger:      logger.With(zap.String("component", "itinerary_generator")),
	}
}

// Attempts returns the total attempt budget.
func (g *Generator) Attempts() int { return g.maxAttempts }

// Generate authors a schema-valid itinerary from the assembled facts and
// reports how many attempts it took. On a validation failure the concrete
// violated constraints are appended to the next request. All attempts
// failing surfaces ErrRetriesExhausted.
func (g *Generator) Generate(ctx context.Context, facts Facts) (*Itinerary, int, error) {
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return nil, 0, types.NewError(types.ErrInternalError, "failed to encode facts").WithCause(err)
	}

	var feedback []string
	var lastErr error

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		req := &llm.ChatRequest{
			Model:    g.model,
			JSONMode: true,
			Messages: g.buildMessages(string(factsJSON), feedback),
		}

		resp, err := g.provider.Completion(ctx, req)
		if err != nil {
			return nil, attempt, types.NewError(types.ErrUpstreamError, "itinerary authoring call failed").WithCause(err)
		}

		it, verr := g.parseAndValidate(resp.Content)
		if verr == nil {
			g.logger.Info("itinerary generated",
				zap.Int("attempt", attempt),
				zap.Int("days", len(it.Days)),
			)
			return it, attempt, nil
		}

		feedback = verr.Messages()
		lastErr = verr
		g.logger.Warn("itinerary validation failed",
			zap.Int("attempt", attempt),
			zap.Int("violations", len(verr.Violations)),
		)
	}

	return nil, g.maxAttempts, types.NewError(types.ErrRetriesExhausted,
		fmt.Sprintf("itinerary generation failed after %d attempts", g.maxAttempts)).
		WithCause(lastErr)
}

func (g *Generator) buildMessages(factsJSON string, feedback []string) []types.Message {
	var sb strings.Builder
	sb.WriteString("You are a travel itinerary author that generates structured JSON output.\n\n")
	sb.WriteString("Respond with ONLY a JSON object with this exact shape:\n")
	sb.WriteString(schemaDescription)
	sb.WriteString("\nConstraints:\n")
	sb.WriteString("- exactly 3 accommodation_options\n")
	sb.WriteString("- 1 to 3 transport_options, mode one of driving|flying|train|bus|hybrid\n")
	sb.WriteString("- one day entry per trip day (1 to 7), day_number sequential from 1\n")
	sb.WriteString("- every morning/afternoon/evening slot has exactly one of activity or restaurant\n")
	sb.WriteString("- 5 to 10 pro_tips\n")
	sb.WriteString("Do not wrap the JSON in markdown code blocks.")

	msgs := []types.Message{
		types.NewSystemMessage(sb.String()),
		types.NewUserMessage("Author the itinerary from these research facts:\n" + factsJSON),
	}

	if len(feedback) > 0 {
		msgs = append(msgs, types.NewUserMessage(
			"Your previous response violated these constraints. Fix every one and respond with the corrected JSON only:\n- "+
				strings.Join(feedback, "\n- ")))
	}
	return msgs
}

// parseAndValidate decodes the raw model output and validates the whole
// object. JSON decode failures are reported as violations so the retry
// feedback loop covers them too.
func (g *Generator) parseAndValidate(raw string) (*Itinerary, *ValidationErrors) {
	jsonStr := extractJSON(raw)

	var it Itinerary
	if err := json.Unmarshal([]byte(jsonStr), &it); err != nil {
		return nil, &ValidationErrors{Violations: []Violation{
			{Message: fmt.Sprintf("response was not valid JSON: %v", err)},
		}}
	}
	if verr := Validate(&it); verr != nil {
		return nil, verr
	}
	return &it, nil
}

var fenceRe = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(.*?)\\n?```")

// extractJSON pulls the JSON object out of a response that may contain
// markdown fences or surrounding prose.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)
	if strings.Contains(response, "```") {
		if m := fenceRe.FindStringSubmatch(response); len(m) > 1 {
			return strings.TrimSpace(m[1])
		}
	}
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start >= 0 && end > start {
		return response[start : end+1]
	}
	return response
}

const schemaDescription = `{
  "metadata": {"destination", "origin", "departure_date", "return_date", "duration_days", "purpose", "travel_pack"},
  "accommodation_options": [{"name", "description", "price_per_night", "features", "location"}],
  "transport_options": [{"mode", "duration_minutes", "total_cost_estimate", "description", "recommended"}],
  "days": [{"day_number", "theme",
            "morning":   {"slot_name", "time_range", "activity" OR "restaurant"},
            "afternoon": {"slot_name", "time_range", "activity" OR "restaurant"},
            "evening":   {"slot_name", "time_range", "activity" OR "restaurant"}}],
  "pro_tips": ["..."]
}
`
