// Package extract wraps the slot-extraction collaborator: it refreshes the
// trip slots from conversation history and sanitizes placeholder noise so
// weak values never masquerade as filled slots.
package extract

import (
	"context"
	"strings"

	"github.com/tripflow/tripflow/engine/confirm"
	"github.com/tripflow/tripflow/types"
)

// Extractor refreshes the extracted trip slots from the conversation.
// Implementations read state and return a new value; they never mutate
// shared state.
type Extractor interface {
	Extract(ctx context.Context, history []types.Message, current types.ExtractedInfo) (types.ExtractedInfo, error)
}

// hintTokens mark destination phrases that are a preference, not a place.
var hintTokens = []string{
	"any", "some", "somewhere", "anywhere", "open", "suggest", "kid",
	"kids", "family", "friendly", "outdoor", "outdoors", "nature", "near",
	"around", "close", "within", "drive", "options", "ideas", "recommend",
}

// LooksLikeHint reports whether a destination value is vague ("somewhere
// near the coast") rather than a concrete place.
func LooksLikeHint(text string) bool {
	low := strings.ToLower(text)
	for _, t := range hintTokens {
		if strings.Contains(low, t) {
			return true
		}
	}
	return false
}

// Merge folds newly extracted values into the current slots. Placeholder
// values are normalized to absent; an existing slot is overwritten only
// when the new value is non-empty. Vague destinations land in
// DestinationHint, never in Destination.
func Merge(current, parsed types.ExtractedInfo) types.ExtractedInfo {
	out := current

	if v := confirm.Normalize(parsed.Origin); v != "" {
		out.Origin = v
	}
	if v := confirm.Normalize(parsed.Destination); v != "" {
		if LooksLikeHint(v) {
			out.DestinationHint = v
		} else {
			out.Destination = v
		}
	}
	if v := confirm.Normalize(parsed.DestinationHint); v != "" {
		out.DestinationHint = v
	}
	if v := confirm.Normalize(parsed.DepartureDate); v != "" {
		out.DepartureDate = v
	}
	if v := confirm.Normalize(parsed.ReturnDate); v != "" {
		out.ReturnDate = v
	}
	if parsed.DurationDays > 0 {
		out.DurationDays = parsed.DurationDays
	}
	if v := confirm.Normalize(parsed.Purpose); v != "" {
		out.Purpose = v
	}
	if v := confirm.Normalize(parsed.TravelPack); v != "" {
		out.TravelPack = strings.ToLower(v)
	}
	for k, v := range parsed.Constraints {
		if out.Constraints == nil {
			out.Constraints = map[string]string{}
		}
		out.Constraints[k] = v
	}
	return out
}
