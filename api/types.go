// Package api defines the HTTP request and response payloads.
package api

import "github.com/tripflow/tripflow/engine/itinerary"

// ChatRequest is the conversational endpoint payload. An empty
// ConversationID starts a new session.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the reply to a conversational turn. Itinerary is present
// only on the turn a full itinerary was generated.
type ChatResponse struct {
	ConversationID string               `json:"conversation_id"`
	Message        string               `json:"message"`
	Stage          string               `json:"stage"`
	Itinerary      *itinerary.Itinerary `json:"itinerary,omitempty"`
}

// RefineAction names a direct refinement operation.
type RefineAction string

const (
	ActionSelectAccommodation RefineAction = "select_accommodation"
	ActionBudgetCheapest      RefineAction = "budget_cheapest"
	ActionSwapComponent       RefineAction = "swap_component"
	ActionFinalize            RefineAction = "finalize"
)

// RefineRequest is the direct refinement payload, bypassing message
// classification.
type RefineRequest struct {
	ConversationID string       `json:"conversation_id"`
	Action         RefineAction `json:"action"`
	// Option is the 1-based accommodation option for select_accommodation.
	Option int `json:"option,omitempty"`
	// Reference names the component to swap, e.g. "day 2 morning activity".
	Reference string `json:"reference,omitempty"`
	// Request carries the replacement wish for swap_component.
	Request string `json:"request,omitempty"`
}

// RefineResponse is the reply to a direct refinement.
type RefineResponse struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

// HealthResponse reports service liveness and dependency status.
type HealthResponse struct {
	Status         string            `json:"status"`
	Checks         map[string]string `json:"checks,omitempty"`
	ActiveSessions int               `json:"active_sessions,omitempty"`
}
