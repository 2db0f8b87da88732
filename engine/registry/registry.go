// Package registry assigns and resolves stable identities for itinerary
// components. Identifiers are immutable and addressable for the remainder
// of a session, even after the component is superseded.
package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripflow/tripflow/types"
)

// Registry creates, resolves, and updates itinerary components held in a
// session's ComponentSet. It never touches any other part of the state.
type Registry struct {
	logger *zap.Logger
}

// New creates a registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{logger: logger.With(zap.String("component", "registry"))}
}

// newID composes an identifier from positional context plus a short random
// suffix: [day{n}_][slot_]kind_<8 hex>. Collisions within the set trigger a
// re-draw.
func (r *Registry) newID(cs *types.ComponentSet, kind types.ComponentKind, day int, slot types.SlotName) string {
	var parts []string
	if day > 0 {
		parts = append(parts, fmt.Sprintf("day%d", day))
	}
	if slot != "" {
		parts = append(parts, string(slot))
	}
	parts = append(parts, string(kind))
	prefix := strings.Join(parts, "_")

	for {
		id := prefix + "_" + uuid.NewString()[:8]
		if _, exists := cs.Get(id); !exists {
			return id
		}
	}
}

// Register creates a new record with a freshly generated identifier and
// returns it. The input component's ID, Seq, Status, and RegisteredAt are
// set by the registry.
func (r *Registry) Register(cs *types.ComponentSet, c types.Component) string {
	c.ID = r.newID(cs, c.Kind, c.Day, c.Slot)
	if c.Status == "" {
		c.Status = types.StatusActive
	}
	c.RegisteredAt = time.Now()
	cs.Add(&c)
	r.logger.Debug("registered component",
		zap.String("id", c.ID),
		zap.String("kind", string(c.Kind)),
		zap.Int("day", c.Day),
	)
	return c.ID
}

// Get returns a record by identifier.
func (r *Registry) Get(cs *types.ComponentSet, id string) (*types.Component, bool) {
	return cs.Get(id)
}

// Update applies partial field changes to a component. Unknown identifiers
// return false.
func (r *Registry) Update(cs *types.ComponentSet, id string, apply func(*types.Component)) bool {
	c, ok := cs.Get(id)
	if !ok {
		return false
	}
	apply(c)
	return true
}

// ListByKind returns the current (non-superseded) components of one kind in
// registration order.
func (r *Registry) ListByKind(cs *types.ComponentSet, kind types.ComponentKind) []*types.Component {
	var out []*types.Component
	for _, c := range cs.Current() {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// ListByDay returns the current components scheduled on a given day.
func (r *Registry) ListByDay(cs *types.ComponentSet, day int) []*types.Component {
	var out []*types.Component
	for _, c := range cs.Current() {
		if c.Day == day {
			out = append(out, c)
		}
	}
	return out
}

// FinalSet returns the user-visible final components: everything selected
// or confirmed. Components never explicitly deselected remain available as
// alternatives but are excluded here.
func (r *Registry) FinalSet(cs *types.ComponentSet) []*types.Component {
	var out []*types.Component
	for _, c := range cs.Current() {
		if c.Selected || c.Confirmed {
			out = append(out, c)
		}
	}
	return out
}

// Primary returns the current primary accommodation record, if any.
func (r *Registry) Primary(cs *types.ComponentSet) (*types.Component, bool) {
	accs := r.ListByKind(cs, types.KindAccommodation)
	if len(accs) == 0 {
		return nil, false
	}
	// The active accommodation is the most recently registered one.
	return accs[len(accs)-1], true
}

// SelectAlternative promotes alternative k of the primary accommodation to
// primary. The old primary is superseded and re-enters the alternatives
// list first, followed by the untouched alternatives in their prior
// relative order. A new identifier is issued for the promoted record.
func (r *Registry) SelectAlternative(cs *types.ComponentSet, k int) (string, error) {
	primary, ok := r.Primary(cs)
	if !ok {
		return "", types.NewError(types.ErrComponentNotFound, "no accommodation registered")
	}
	alts := primary.Alternatives
	if k < 0 || k >= len(alts) {
		return "", types.NewError(types.ErrInvalidRequest,
			fmt.Sprintf("accommodation option %d out of range (have %d alternatives)", k+1, len(alts)))
	}

	promoted := alts[k]

	demoted := asAlternative(*primary)
	newAlts := make([]types.Component, 0, len(alts))
	newAlts = append(newAlts, demoted)
	newAlts = append(newAlts, alts[:k]...)
	newAlts = append(newAlts, alts[k+1:]...)

	primary.Status = types.StatusSuperseded

	promoted.Alternatives = newAlts
	promoted.Selected = true
	promoted.Kind = types.KindAccommodation
	newID := r.Register(cs, promoted)

	r.logger.Info("accommodation selection updated",
		zap.String("name", promoted.Name),
		zap.String("id", newID),
	)
	return newID, nil
}

// SelectCheapest promotes the lowest price-per-night record among the
// primary and its alternatives. Used by budget refinements.
func (r *Registry) SelectCheapest(cs *types.ComponentSet) (string, error) {
	primary, ok := r.Primary(cs)
	if !ok {
		return "", types.NewError(types.ErrComponentNotFound, "no accommodation registered")
	}
	if len(primary.Alternatives) == 0 {
		return "", types.NewError(types.ErrComponentNotFound, "no alternative accommodations available")
	}

	best := -1
	for i, alt := range primary.Alternatives {
		if alt.PriceNight < primary.PriceNight && (best < 0 || alt.PriceNight < primary.Alternatives[best].PriceNight) {
			best = i
		}
	}
	if best < 0 {
		// Primary is already the cheapest; nothing to promote.
		return primary.ID, nil
	}
	return r.SelectAlternative(cs, best)
}

// SupersedeCurrent retires every current record while keeping each one
// addressable. Used when changed trip details force a full rebuild.
func (r *Registry) SupersedeCurrent(cs *types.ComponentSet) {
	for _, c := range cs.Current() {
		c.Status = types.StatusSuperseded
	}
}

// MarkPendingReplacement flags a component for replacement. The record
// stays addressable until a research step supplies a concrete replacement.
func (r *Registry) MarkPendingReplacement(cs *types.ComponentSet, id, request string) bool {
	return r.Update(cs, id, func(c *types.Component) {
		c.Status = types.StatusPendingReplacement
		if c.Fields == nil {
			c.Fields = map[string]string{}
		}
		c.Fields["replacement_request"] = request
	})
}

// Replace supersedes the pending component and registers its replacement
// under a new identifier, inheriting the original's position.
func (r *Registry) Replace(cs *types.ComponentSet, id string, replacement types.Component) (string, error) {
	old, ok := cs.Get(id)
	if !ok {
		return "", types.NewError(types.ErrComponentNotFound, "component not found: "+id)
	}
	old.Status = types.StatusSuperseded
	replacement.Day = old.Day
	replacement.Slot = old.Slot
	if replacement.Kind == "" {
		replacement.Kind = old.Kind
	}
	return r.Register(cs, replacement), nil
}

// asAlternative strips registry-managed identity from a record so it can
// live inside an alternatives list.
func asAlternative(c types.Component) types.Component {
	c.ID = ""
	c.Seq = 0
	c.Status = ""
	c.Selected = false
	c.Alternatives = nil
	c.RegisteredAt = time.Time{}
	return c
}
