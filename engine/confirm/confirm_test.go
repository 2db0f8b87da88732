package confirm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tripflow/tripflow/types"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Asheville", "Asheville"},
		{"  Asheville  ", "Asheville"},
		{"", ""},
		{"null", ""},
		{"NULL", ""},
		{"None", ""},
		{"n/a", ""},
		{"unknown", ""},
		{"Nashville", "Nashville"}, // contains "null"-like letters but is a real value
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), "input %q", tt.in)
	}
}

func TestFingerprintStable(t *testing.T) {
	info := types.ExtractedInfo{
		Origin:        "Charlotte, NC",
		Destination:   "Asheville, NC",
		DepartureDate: "2026-09-04",
		ReturnDate:    "2026-09-06",
		Purpose:       "anniversary",
		TravelPack:    "couple",
	}
	assert.Equal(t, Fingerprint(info), Fingerprint(info))
}

func TestFingerprintPlaceholderEqualsAbsent(t *testing.T) {
	withPlaceholder := types.ExtractedInfo{Origin: "Charlotte", Purpose: "null"}
	withAbsent := types.ExtractedInfo{Origin: "Charlotte"}
	assert.Equal(t, Fingerprint(withAbsent), Fingerprint(withPlaceholder))
}

func TestFingerprintChangesWithSlot(t *testing.T) {
	base := types.ExtractedInfo{Origin: "Charlotte", Destination: "Asheville"}
	changed := base
	changed.Destination = "Boone"
	assert.NotEqual(t, Fingerprint(base), Fingerprint(changed))
}

func TestFingerprintIgnoresNonConfirmedFields(t *testing.T) {
	base := types.ExtractedInfo{Origin: "Charlotte", Destination: "Asheville"}
	withHint := base
	withHint.DestinationHint = "somewhere in the mountains"
	withHint.DurationDays = 3
	assert.Equal(t, Fingerprint(base), Fingerprint(withHint))
}

func TestConfirmed(t *testing.T) {
	st := types.NewState("s1")
	st.Extracted = types.ExtractedInfo{Origin: "Charlotte", Destination: "Asheville"}

	assert.False(t, Confirmed(st), "no stored hash")

	st.ConfirmedHash = Fingerprint(st.Extracted)
	assert.True(t, Confirmed(st))

	// any confirmed slot changing invalidates the confirmation
	st.Extracted.Destination = "Boone"
	assert.False(t, Confirmed(st))
}
