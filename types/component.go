package types

import "time"

// ComponentKind tags the variant of an itinerary component.
type ComponentKind string

const (
	KindAccommodation ComponentKind = "accommodation"
	KindActivity      ComponentKind = "activity"
	KindRestaurant    ComponentKind = "restaurant"
	KindTransport     ComponentKind = "transport"
)

// ComponentStatus is the lifecycle state of a registered component.
type ComponentStatus string

const (
	StatusActive             ComponentStatus = "active"
	StatusPendingReplacement ComponentStatus = "pending_replacement"
	StatusSuperseded         ComponentStatus = "superseded"
)

// SlotName is a time slot within a day.
type SlotName string

const (
	SlotMorning   SlotName = "morning"
	SlotAfternoon SlotName = "afternoon"
	SlotEvening   SlotName = "evening"
)

// SlotNames lists the day slots in schedule order.
var SlotNames = []SlotName{SlotMorning, SlotAfternoon, SlotEvening}

// Component is an individually addressable itinerary sub-part with a stable
// identifier. Day is 0 and Slot empty for components outside the daily
// schedule (accommodation, transport legs).
type Component struct {
	ID           string            `json:"component_id"`
	Kind         ComponentKind     `json:"kind"`
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Day          int               `json:"day,omitempty"`
	Slot         SlotName          `json:"slot,omitempty"`
	Selected     bool              `json:"selected"`
	Confirmed    bool              `json:"confirmed"`
	Status       ComponentStatus   `json:"status"`
	PriceNight   int               `json:"price_per_night,omitempty"`
	Fields       map[string]string `json:"fields,omitempty"`
	Alternatives []Component       `json:"alternatives,omitempty"`
	RegisteredAt time.Time         `json:"registered_at"`
	Seq          int               `json:"seq"`
}

// ComponentSet holds a session's registry contents. Records maps every
// identifier ever issued; Order preserves registration order so recency
// tie-breaks stay deterministic.
type ComponentSet struct {
	Records map[string]*Component `json:"records"`
	Order   []string              `json:"order"`
}

// NewComponentSet returns an empty component set.
func NewComponentSet() ComponentSet {
	return ComponentSet{Records: map[string]*Component{}}
}

// Add stores a record and appends it to the registration order. The caller
// is responsible for identifier uniqueness.
func (cs *ComponentSet) Add(c *Component) {
	if cs.Records == nil {
		cs.Records = map[string]*Component{}
	}
	c.Seq = len(cs.Order)
	cs.Records[c.ID] = c
	cs.Order = append(cs.Order, c.ID)
}

// Get returns a record by identifier, issued at any point in the session.
func (cs *ComponentSet) Get(id string) (*Component, bool) {
	c, ok := cs.Records[id]
	return c, ok
}

// Current returns all non-superseded records in registration order.
func (cs *ComponentSet) Current() []*Component {
	var out []*Component
	for _, id := range cs.Order {
		if c := cs.Records[id]; c != nil && c.Status != StatusSuperseded {
			out = append(out, c)
		}
	}
	return out
}

// Len returns the number of records ever registered.
func (cs *ComponentSet) Len() int {
	return len(cs.Order)
}

// Empty reports whether nothing has been registered yet.
func (cs *ComponentSet) Empty() bool {
	return len(cs.Order) == 0
}
