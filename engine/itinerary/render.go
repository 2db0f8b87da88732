package itinerary

import (
	"fmt"
	"strings"
)

// Render converts a validated itinerary to user-friendly markdown.
func Render(it *Itinerary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Your %s Trip\n\n", it.Metadata.Destination)
	fmt.Fprintf(&b, "**Duration**: %d days\n", it.Metadata.DurationDays)
	fmt.Fprintf(&b, "**Dates**: %s to %s\n\n", it.Metadata.DepartureDate, it.Metadata.ReturnDate)

	b.WriteString("## Transport Options\n")
	for i, t := range it.TransportOptions {
		recommended := ""
		if t.Recommended {
			recommended = " (Recommended)"
		}
		fmt.Fprintf(&b, "%d. **%s**%s — %s\n", i+1, capitalize(t.Mode), recommended, t.Description)
	}

	b.WriteString("\n## Accommodation Options\n")
	for i, h := range it.AccommodationOptions {
		fmt.Fprintf(&b, "%d. **%s** — $%d/night, %s\n", i+1, h.Name, h.PricePerNight, h.Location)
		if h.Description != "" {
			fmt.Fprintf(&b, "   %s\n", h.Description)
		}
	}
	b.WriteString("\nReply with the hotel number to select it.\n")

	b.WriteString("\n## Daily Schedule\n")
	for _, day := range it.Days {
		fmt.Fprintf(&b, "\n### Day %d — %s\n", day.DayNumber, day.Theme)
		renderSlot(&b, "Morning", day.Morning)
		renderSlot(&b, "Afternoon", day.Afternoon)
		renderSlot(&b, "Evening", day.Evening)
	}

	if len(it.ProTips) > 0 {
		b.WriteString("\n## Pro Tips\n")
		for _, tip := range it.ProTips {
			fmt.Fprintf(&b, "- %s\n", tip)
		}
	}

	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func renderSlot(b *strings.Builder, label string, slot TimeSlot) {
	switch {
	case slot.Activity != nil:
		fmt.Fprintf(b, "**%s** (%s): %s — %s\n", label, slot.TimeRange, slot.Activity.Name, slot.Activity.Description)
	case slot.Restaurant != nil:
		fmt.Fprintf(b, "**%s** (%s): %s (%s, %s)\n", label, slot.TimeRange, slot.Restaurant.Name, slot.Restaurant.Cuisine, slot.Restaurant.PriceRange)
	}
}
