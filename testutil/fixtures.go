package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/tripflow/tripflow/engine/itinerary"
	"github.com/tripflow/tripflow/types"
)

// MustJSON marshals v or panics. Test-only convenience.
func MustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// ValidItinerary builds an itinerary that passes schema validation: three
// accommodation options, one transport option, the requested number of
// days, and six pro tips.
func ValidItinerary(days int) *itinerary.Itinerary {
	it := &itinerary.Itinerary{
		Metadata: itinerary.Metadata{
			Destination:   "Asheville, NC",
			Origin:        "Charlotte, NC",
			DepartureDate: "2026-09-04",
			ReturnDate:    "2026-09-06",
			DurationDays:  days,
			Purpose:       "anniversary weekend",
			TravelPack:    "couple",
		},
		AccommodationOptions: []itinerary.AccommodationOption{
			{Name: "The Foundry Hotel", Description: "Historic downtown hotel", PricePerNight: 280, Location: "Downtown"},
			{Name: "Riverside Inn", Description: "Quiet inn by the river", PricePerNight: 160, Location: "River Arts District"},
			{Name: "Mountain Cabin", Description: "Secluded cabin with views", PricePerNight: 120, Location: "Black Mountain"},
		},
		TransportOptions: []itinerary.TransportOption{
			{Mode: "driving", DurationMinutes: 130, Description: "Scenic drive on I-40", Recommended: true},
		},
		ProTips: []string{
			"Book dinner reservations ahead",
			"Pack layers for mountain evenings",
			"Parking downtown fills up by 10am",
			"The Blue Ridge Parkway is free",
			"Many galleries close on Mondays",
			"Carry cash for the farmers market",
		},
	}
	for d := 1; d <= days; d++ {
		it.Days = append(it.Days, itinerary.DayPlan{
			DayNumber: d,
			Theme:     fmt.Sprintf("Day %d exploring", d),
			Morning: itinerary.TimeSlot{
				SlotName:  types.SlotMorning,
				TimeRange: "9:00 AM - 12:00 PM",
				Activity:  &itinerary.Activity{Name: "Botanical Gardens walk", Type: "outdoor", DurationMinutes: 120, Description: "Easy riverside trail"},
			},
			Afternoon: itinerary.TimeSlot{
				SlotName:  types.SlotAfternoon,
				TimeRange: "12:30 PM - 5:00 PM",
				Activity:  &itinerary.Activity{Name: "Biltmore Estate tour", Type: "sightseeing", DurationMinutes: 180, Description: "House and grounds"},
			},
			Evening: itinerary.TimeSlot{
				SlotName:  types.SlotEvening,
				TimeRange: "6:00 PM - 9:00 PM",
				Restaurant: &itinerary.Restaurant{
					Name: "Curate", Cuisine: "Spanish", PriceRange: "$$$",
					MealType: "dinner", Description: "Tapas bar in downtown",
				},
			},
		})
	}
	return it
}
