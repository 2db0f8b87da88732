package itinerary

import (
	"fmt"
	"strings"

	"github.com/tripflow/tripflow/types"
)

// Violation is a single schema constraint failure with its field path.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (v *Violation) Error() string {
	if v.Path == "" {
		return v.Message
	}
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// ValidationErrors aggregates every violation found in one pass.
type ValidationErrors struct {
	Violations []Violation `json:"violations"`
}

// Error implements the error interface.
func (e *ValidationErrors) Error() string {
	if len(e.Violations) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("validation failed with %d violations: %s", len(e.Violations), strings.Join(msgs, "; "))
}

// Messages returns the violations as plain strings for retry feedback.
func (e *ValidationErrors) Messages() []string {
	out := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		out[i] = v.Error()
	}
	return out
}

// Validate checks the whole decoded itinerary against the schema
// constraints and returns every violation found. It runs only after the
// full object is decoded so cross-field rules (like the one-of slot rule)
// see all fields at once.
func Validate(it *Itinerary) *ValidationErrors {
	var vs []Violation
	add := func(path, format string, args ...any) {
		vs = append(vs, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(it.Metadata.Destination) == "" {
		add("metadata.destination", "must not be empty")
	}
	if strings.TrimSpace(it.Metadata.Origin) == "" {
		add("metadata.origin", "must not be empty")
	}
	if it.Metadata.DurationDays < 1 || it.Metadata.DurationDays > 7 {
		add("metadata.duration_days", "must be between 1 and 7, got %d", it.Metadata.DurationDays)
	}

	if n := len(it.AccommodationOptions); n != 3 {
		add("accommodation_options", "need exactly 3 options, got %d", n)
	}
	for i, acc := range it.AccommodationOptions {
		path := fmt.Sprintf("accommodation_options[%d]", i)
		if strings.TrimSpace(acc.Name) == "" {
			add(path+".name", "must not be empty")
		}
		if acc.PricePerNight < 0 {
			add(path+".price_per_night", "must not be negative")
		}
	}

	if n := len(it.TransportOptions); n < 1 || n > 3 {
		add("transport_options", "need 1 to 3 options, got %d", n)
	}
	for i, t := range it.TransportOptions {
		if !transportModes[t.Mode] {
			add(fmt.Sprintf("transport_options[%d].mode", i), "unknown mode %q", t.Mode)
		}
	}

	if n := len(it.Days); n < 1 || n > 7 {
		add("days", "need 1 to 7 days, got %d", n)
	}
	for i, day := range it.Days {
		path := fmt.Sprintf("days[%d]", i)
		if day.DayNumber != i+1 {
			add(path+".day_number", "must be %d (sequential from 1), got %d", i+1, day.DayNumber)
		}
		validateSlot(&vs, path+".morning", types.SlotMorning, day.Morning)
		validateSlot(&vs, path+".afternoon", types.SlotAfternoon, day.Afternoon)
		validateSlot(&vs, path+".evening", types.SlotEvening, day.Evening)
	}

	if n := len(it.ProTips); n < 5 || n > 10 {
		add("pro_tips", "need 5 to 10 tips, got %d", n)
	}

	if len(vs) == 0 {
		return nil
	}
	return &ValidationErrors{Violations: vs}
}

func validateSlot(vs *[]Violation, path string, want types.SlotName, slot TimeSlot) {
	add := func(sub, format string, args ...any) {
		*vs = append(*vs, Violation{Path: path + sub, Message: fmt.Sprintf(format, args...)})
	}
	if slot.SlotName != "" && slot.SlotName != want {
		add(".slot_name", "must be %q, got %q", want, slot.SlotName)
	}
	hasActivity := slot.Activity != nil
	hasRestaurant := slot.Restaurant != nil
	switch {
	case !hasActivity && !hasRestaurant:
		add("", "must contain an activity or a restaurant")
	case hasActivity && hasRestaurant:
		add("", "must contain exactly one of activity or restaurant, got both")
	}
	if hasActivity {
		if strings.TrimSpace(slot.Activity.Name) == "" {
			add(".activity.name", "must not be empty")
		}
		if d := slot.Activity.DurationMinutes; d < 15 || d > 300 {
			add(".activity.duration_minutes", "must be between 15 and 300, got %d", d)
		}
	}
	if hasRestaurant {
		if strings.TrimSpace(slot.Restaurant.Name) == "" {
			add(".restaurant.name", "must not be empty")
		}
		switch slot.Restaurant.PriceRange {
		case "$", "$$", "$$$", "$$$$":
		default:
			add(".restaurant.price_range", "must be one of $ to $$$$, got %q", slot.Restaurant.PriceRange)
		}
	}
}
