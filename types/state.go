package types

import (
	"strings"
	"time"
)

// Slot names for the extracted trip parameters. These are the keys used in
// clarification prompts and confirmation fingerprints.
const (
	SlotOrigin        = "origin"
	SlotDestination   = "destination"
	SlotDepartureDate = "departure_date"
	SlotReturnDate    = "return_date"
	SlotPurpose       = "trip_purpose"
	SlotTravelPack    = "travel_pack"
)

// ExtractedInfo holds the trip slots gathered across turns. A zero value
// means the slot is absent; slots are overwritten only when the user
// supplies a new value.
type ExtractedInfo struct {
	Origin          string            `json:"origin,omitempty"`
	Destination     string            `json:"destination,omitempty"`
	DestinationHint string            `json:"destination_hint,omitempty"`
	DepartureDate   string            `json:"departure_date,omitempty"`
	ReturnDate      string            `json:"return_date,omitempty"`
	DurationDays    int               `json:"duration_days,omitempty"`
	Purpose         string            `json:"trip_purpose,omitempty"`
	TravelPack      string            `json:"travel_pack,omitempty"`
	Constraints     map[string]string `json:"constraints,omitempty"`
}

// HasDestination reports whether a concrete destination has been resolved.
func (e ExtractedInfo) HasDestination() bool {
	return strings.TrimSpace(e.Destination) != ""
}

// MissingRequired returns the required slots that are still absent, in a
// fixed order so clarification always asks for the same slot first.
func (e ExtractedInfo) MissingRequired() []string {
	var missing []string
	if strings.TrimSpace(e.Origin) == "" {
		missing = append(missing, SlotOrigin)
	}
	if strings.TrimSpace(e.DepartureDate) == "" {
		missing = append(missing, SlotDepartureDate)
	}
	if strings.TrimSpace(e.ReturnDate) == "" {
		missing = append(missing, SlotReturnDate)
	}
	if strings.TrimSpace(e.Purpose) == "" {
		missing = append(missing, SlotPurpose)
	}
	if strings.TrimSpace(e.TravelPack) == "" {
		missing = append(missing, SlotTravelPack)
	}
	return missing
}

// Duration returns the trip length in days. An explicit duration wins;
// otherwise it is derived from the dates; the final fallback is 2 days.
func (e ExtractedInfo) Duration() int {
	if e.DurationDays > 0 {
		return e.DurationDays
	}
	dep, err1 := time.Parse("2006-01-02", e.DepartureDate)
	ret, err2 := time.Parse("2006-01-02", e.ReturnDate)
	if err1 == nil && err2 == nil {
		if d := int(ret.Sub(dep).Hours() / 24); d > 0 {
			return d
		}
	}
	return 2
}

// Flags are the booleans gating later routing decisions.
type Flags struct {
	ItineraryPresented bool `json:"itinerary_presented"`
	HasSelections      bool `json:"has_selections"`
	ConfirmedFinal     bool `json:"confirmed_final"`
}

// Suggestion is a single destination suggestion offered during discovery.
type Suggestion struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Discovery tracks the destination-discovery exchange. While Offered is set
// and Resolved is not, the engine is waiting for the user to pick from
// Suggestions and must not re-issue the list.
type Discovery struct {
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Offered     bool         `json:"offered"`
	Resolved    bool         `json:"resolved"`
}

// ClarificationStatus is the state of the slot-confirmation exchange.
type ClarificationStatus string

const (
	ClarificationIncomplete ClarificationStatus = "incomplete"
	ClarificationAwaiting   ClarificationStatus = "awaiting_confirmation"
	ClarificationComplete   ClarificationStatus = "complete"
)

// Clarification tracks whether the required slots have been confirmed.
type Clarification struct {
	Status  ClarificationStatus `json:"status"`
	Summary string              `json:"summary,omitempty"`
	Missing []string            `json:"missing,omitempty"`
}

// PendingActionType tags a deferred request awaiting a research step.
type PendingActionType string

const (
	PendingSwap PendingActionType = "swap"
)

// PendingAction is a deferred replacement request. It stays queued until a
// research step supplies a concrete replacement.
type PendingAction struct {
	Type        PendingActionType `json:"type"`
	ComponentID string            `json:"component_id"`
	Request     string            `json:"request"`
	CreatedAt   time.Time         `json:"created_at"`
}

// State is the single mutable record threaded through a turn. One instance
// exists per session; only the orchestrator writes Plan, Components,
// ConfirmedHash, and Flags.
type State struct {
	SessionID      string          `json:"session_id"`
	CreatedAt      time.Time       `json:"created_at"`
	History        []Message       `json:"history"`
	Extracted      ExtractedInfo   `json:"extracted_info"`
	Plan           Plan            `json:"plan"`
	Components     ComponentSet    `json:"components"`
	ConfirmedHash  string          `json:"confirmed_hash,omitempty"`
	Clarification  Clarification   `json:"clarification"`
	Discovery      Discovery       `json:"discovery"`
	Flags          Flags           `json:"flags"`
	PendingActions []PendingAction `json:"pending_actions,omitempty"`
}

// NewState creates a fresh session state with all fields empty.
func NewState(sessionID string) *State {
	return &State{
		SessionID:     sessionID,
		CreatedAt:     time.Now(),
		Clarification: Clarification{Status: ClarificationIncomplete},
		Components:    NewComponentSet(),
	}
}

// AddMessage appends a message to the history. Empty or whitespace-only
// content is ignored.
func (s *State) AddMessage(m Message) {
	if strings.TrimSpace(m.Content) == "" {
		return
	}
	s.History = append(s.History, m)
}

// LastUserMessage returns the most recent user message content, or "".
func (s *State) LastUserMessage() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == RoleUser {
			return s.History[i].Content
		}
	}
	return ""
}

// TrimHistory keeps only the last max messages.
func (s *State) TrimHistory(max int) {
	if max > 0 && len(s.History) > max {
		s.History = s.History[len(s.History)-max:]
	}
}
