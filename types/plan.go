package types

// SectionName identifies a plan section.
type SectionName string

const (
	SectionTransport  SectionName = "transport"
	SectionStays      SectionName = "stays"
	SectionActivities SectionName = "activities"
	SectionSummary    SectionName = "summary"
)

// ResearchSections are the sections filled by research steps, in the order
// the orchestrator dispatches them. Summary is seeded by the orchestrator
// itself and is not a research section.
var ResearchSections = []SectionName{SectionTransport, SectionStays, SectionActivities}

// Link is a single research result reference.
type Link struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet,omitempty"`
}

// Patch is a partial result returned by a research step. It is merged at
// most once into its plan section.
type Patch struct {
	Summary  string `json:"summary"`
	Results  []Link `json:"results"`
	FollowUp string `json:"follow_up,omitempty"`
}

// TripSummary is the seed section derived from the extracted slots.
type TripSummary struct {
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Departure    string `json:"departure"`
	Return       string `json:"return"`
	DurationDays int    `json:"duration_days"`
	Purpose      string `json:"purpose"`
	Pack         string `json:"pack"`
}

// Plan maps section names to populated patches. A nil pointer means the
// section is absent. Once populated, a section is never silently
// overwritten: only the orchestrator's merge may populate an absent
// section, and only a targeted user-driven refinement may replace a
// populated one.
type Plan struct {
	Summary    *TripSummary `json:"summary,omitempty"`
	Transport  *Patch       `json:"transport,omitempty"`
	Stays      *Patch       `json:"stays,omitempty"`
	Activities *Patch       `json:"activities,omitempty"`
}

// Section returns the patch for a research section, or nil when absent.
func (p *Plan) Section(name SectionName) *Patch {
	switch name {
	case SectionTransport:
		return p.Transport
	case SectionStays:
		return p.Stays
	case SectionActivities:
		return p.Activities
	}
	return nil
}

// SetOnce writes a patch into an absent section and reports whether the
// write happened. A populated section is left untouched.
func (p *Plan) SetOnce(name SectionName, patch *Patch) bool {
	if patch == nil || p.Section(name) != nil {
		return false
	}
	switch name {
	case SectionTransport:
		p.Transport = patch
	case SectionStays:
		p.Stays = patch
	case SectionActivities:
		p.Activities = patch
	default:
		return false
	}
	return true
}

// Replace overwrites a section regardless of its current value. Reserved
// for targeted user-driven refinements.
func (p *Plan) Replace(name SectionName, patch *Patch) {
	switch name {
	case SectionTransport:
		p.Transport = patch
	case SectionStays:
		p.Stays = patch
	case SectionActivities:
		p.Activities = patch
	}
}

// MissingSections returns the research sections that are still absent.
func (p *Plan) MissingSections() []SectionName {
	var missing []SectionName
	for _, name := range ResearchSections {
		if p.Section(name) == nil {
			missing = append(missing, name)
		}
	}
	return missing
}

// Complete reports whether every research section is populated.
func (p *Plan) Complete() bool {
	return len(p.MissingSections()) == 0
}
