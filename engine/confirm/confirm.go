// Package confirm implements the confirmation gate: a digest of the
// confirmed trip slots used to suppress redundant re-confirmation prompts.
package confirm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/tripflow/tripflow/types"
)

// placeholder values that extraction sometimes emits for missing slots.
var placeholders = map[string]bool{
	"":        true,
	"null":    true,
	"none":    true,
	"n/a":     true,
	"unknown": true,
}

// Normalize maps placeholder-like slot values to the empty string so they
// fingerprint identically to an absent slot.
func Normalize(value string) string {
	v := strings.TrimSpace(value)
	if placeholders[strings.ToLower(v)] {
		return ""
	}
	return v
}

// Fingerprint computes a stable digest over the slots the user confirms.
// Equal fingerprints mean the confirmed parameters have not changed and no
// re-confirmation is needed.
func Fingerprint(info types.ExtractedInfo) string {
	subset := map[string]string{
		types.SlotOrigin:        Normalize(info.Origin),
		types.SlotDestination:   Normalize(info.Destination),
		types.SlotDepartureDate: Normalize(info.DepartureDate),
		types.SlotReturnDate:    Normalize(info.ReturnDate),
		types.SlotPurpose:       Normalize(info.Purpose),
		types.SlotTravelPack:    Normalize(info.TravelPack),
	}
	payload, _ := json.Marshal(subset) // map keys marshal sorted
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Confirmed reports whether the state's stored hash matches the current
// extracted slots, i.e. the user already confirmed exactly these values.
func Confirmed(state *types.State) bool {
	return state.ConfirmedHash != "" && state.ConfirmedHash == Fingerprint(state.Extracted)
}
