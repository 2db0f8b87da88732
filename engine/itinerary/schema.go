// Package itinerary defines the structured itinerary schema and the
// validated-generation loop that turns a model response into a
// guaranteed-well-formed itinerary.
package itinerary

import "github.com/tripflow/tripflow/types"

// Metadata is the trip overview block.
type Metadata struct {
	Destination   string `json:"destination"`
	Origin        string `json:"origin"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date"`
	DurationDays  int    `json:"duration_days"`
	Purpose       string `json:"purpose"`
	TravelPack    string `json:"travel_pack"`
}

// AccommodationOption is a single lodging option for the trip.
type AccommodationOption struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PricePerNight int      `json:"price_per_night"`
	Features      []string `json:"features,omitempty"`
	Location      string   `json:"location"`
	BookingURL    string   `json:"booking_url,omitempty"`
}

// TransportOption describes one way of getting to the destination.
type TransportOption struct {
	Mode            string   `json:"mode"`
	DurationMinutes int      `json:"duration_minutes,omitempty"`
	CostPerPerson   int      `json:"cost_per_person,omitempty"`
	TotalCost       int      `json:"total_cost_estimate,omitempty"`
	CostNotes       string   `json:"cost_notes,omitempty"`
	Description     string   `json:"description"`
	Recommendations []string `json:"recommendations,omitempty"`
	Recommended     bool     `json:"recommended,omitempty"`
}

// transportModes are the accepted TransportOption.Mode values.
var transportModes = map[string]bool{
	"driving": true, "flying": true, "train": true, "bus": true, "hybrid": true,
}

// Activity is a scheduled activity within a time slot.
type Activity struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	TimeStart       string   `json:"time_start"`
	DurationMinutes int      `json:"duration_minutes"`
	CostAdult       float64  `json:"cost_adult,omitempty"`
	CostChild       float64  `json:"cost_child,omitempty"`
	Description     string   `json:"description"`
	Tips            []string `json:"tips,omitempty"`
}

// Restaurant is a dining recommendation within a time slot.
type Restaurant struct {
	Name        string   `json:"name"`
	Cuisine     string   `json:"cuisine"`
	PriceRange  string   `json:"price_range"`
	Time        string   `json:"time"`
	MealType    string   `json:"meal_type"`
	Features    []string `json:"features,omitempty"`
	Description string   `json:"description"`
	AvgCost     int      `json:"average_cost_per_person,omitempty"`
}

// TimeSlot holds exactly one of Activity or Restaurant. The constraint is
// checked by Validate over the fully decoded object, never field by field:
// per-field evaluation would reject valid slots whose other field arrives
// later in field order.
type TimeSlot struct {
	SlotName   types.SlotName `json:"slot_name"`
	TimeRange  string         `json:"time_range"`
	Activity   *Activity      `json:"activity,omitempty"`
	Restaurant *Restaurant    `json:"restaurant,omitempty"`
}

// DayPlan is the complete schedule for one day.
type DayPlan struct {
	DayNumber int      `json:"day_number"`
	Theme     string   `json:"theme"`
	Morning   TimeSlot `json:"morning"`
	Afternoon TimeSlot `json:"afternoon"`
	Evening   TimeSlot `json:"evening"`
}

// Itinerary is the complete structured itinerary. This is the canonical
// shape registered into the component registry.
type Itinerary struct {
	Metadata             Metadata              `json:"metadata"`
	AccommodationOptions []AccommodationOption `json:"accommodation_options"`
	TransportOptions     []TransportOption     `json:"transport_options"`
	Days                 []DayPlan             `json:"days"`
	ProTips              []string              `json:"pro_tips"`
}
