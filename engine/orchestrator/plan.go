package orchestrator

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tripflow/tripflow/engine/confirm"
	"github.com/tripflow/tripflow/engine/itinerary"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/engine/steps"
	"github.com/tripflow/tripflow/types"
)

const generationApology = "I couldn't put together a complete itinerary just now. " +
	"Nothing about your trip details has been lost; please try again in a moment."

// planStage runs the research fan-out and validated generation. The
// confirmation gate runs first: the full plan is only built over slots the
// user has explicitly confirmed.
func (o *Orchestrator) planStage(ctx context.Context, st *types.State) (*Result, error) {
	if !confirm.Confirmed(st) {
		summary := confirmationSummary(st.Extracted)
		st.Clarification = types.Clarification{
			Status:  types.ClarificationAwaiting,
			Summary: summary,
		}
		return &Result{Stage: router.StagePlan, Reply: summary + "\nShall I plan the trip with these details?"}, nil
	}

	// An itinerary already built over these exact details must not be
	// rebuilt: regeneration would re-register every component and displace
	// the user's selections. Point the user at the refinement paths instead.
	if st.Flags.ItineraryPresented && planCurrent(st) {
		return &Result{Stage: router.StageRefine, Reply: refineHelp}, nil
	}
	rebuild := st.Flags.ItineraryPresented

	o.invalidateStalePlan(st)
	o.seedSummary(st)
	o.runResearch(ctx, st)

	facts := itinerary.Facts{
		Summary:    *st.Plan.Summary,
		Transport:  st.Plan.Transport,
		Stays:      st.Plan.Stays,
		Activities: st.Plan.Activities,
	}

	it, attempts, err := o.generator.Generate(ctx, facts)
	if err != nil {
		// Terminal for the turn: no partial itinerary is registered and
		// the presented flag stays unset.
		o.observer.GenerationExhausted()
		o.logger.Error("itinerary generation failed",
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
		return &Result{Stage: router.StagePlan, Reply: generationApology}, nil
	}

	o.observer.GenerationAttempts(attempts)
	if rebuild {
		// The previous trip's components stay addressable but leave the
		// current listings, so selections and finalization see only the
		// rebuilt itinerary.
		o.registry.SupersedeCurrent(&st.Components)
	}
	o.registerItinerary(st, it)
	st.Flags.ItineraryPresented = true

	return &Result{
		Stage:     router.StagePlan,
		Reply:     itinerary.Render(it),
		Itinerary: it,
	}, nil
}

// planCurrent reports whether the built plan still reflects the extracted
// slots.
func planCurrent(st *types.State) bool {
	s := st.Plan.Summary
	if s == nil {
		return false
	}
	info := st.Extracted
	return s.Origin == info.Origin &&
		s.Destination == info.Destination &&
		s.Departure == info.DepartureDate &&
		s.Return == info.ReturnDate &&
		s.Purpose == info.Purpose &&
		s.Pack == info.TravelPack
}

// invalidateStalePlan clears the summary and every section whose research
// inputs changed, so a re-confirmed slot change rebuilds on the new
// details. A date-only change keeps the research sections: none of their
// queries involve dates.
func (o *Orchestrator) invalidateStalePlan(st *types.State) {
	s := st.Plan.Summary
	if s == nil || planCurrent(st) {
		return
	}
	info := st.Extracted
	if s.Origin != info.Origin || s.Destination != info.Destination {
		st.Plan.Replace(types.SectionTransport, nil)
	}
	if s.Destination != info.Destination || s.Pack != info.TravelPack {
		st.Plan.Replace(types.SectionStays, nil)
	}
	if s.Destination != info.Destination || s.Purpose != info.Purpose {
		st.Plan.Replace(types.SectionActivities, nil)
	}
	st.Plan.Summary = nil
	o.logger.Info("plan invalidated by slot change",
		zap.String("session_id", st.SessionID),
	)
}

// seedSummary populates the plan's summary section from the confirmed
// slots. Like every section, it is written once.
func (o *Orchestrator) seedSummary(st *types.State) {
	if st.Plan.Summary != nil {
		return
	}
	info := st.Extracted
	st.Plan.Summary = &types.TripSummary{
		Origin:       info.Origin,
		Destination:  info.Destination,
		Departure:    info.DepartureDate,
		Return:       info.ReturnDate,
		DurationDays: info.Duration(),
		Purpose:      info.Purpose,
		Pack:         info.TravelPack,
	}
}

// runResearch fans the missing sections out to their steps concurrently and
// merges the patches single-writer after all steps return. A failed step
// degrades its section to the uniform fallback patch; already-populated
// sections are never re-run or overwritten.
func (o *Orchestrator) runResearch(ctx context.Context, st *types.State) {
	missing := st.Plan.MissingSections()
	if len(missing) == 0 {
		return
	}

	patches := make([]*types.Patch, len(missing))
	g, gctx := errgroup.WithContext(ctx)
	for i, section := range missing {
		i, section := i, section
		g.Go(func() error {
			step, ok := o.steps[section]
			if !ok {
				patches[i] = steps.FallbackPatch(section)
				return nil
			}
			patch, err := step.Run(gctx, st)
			if err != nil || patch == nil {
				if err != nil {
					o.logger.Warn("research step failed",
						zap.String("session_id", st.SessionID),
						zap.String("section", string(section)),
						zap.Error(err),
					)
				}
				o.observer.StepFallback(string(section))
				patch = steps.FallbackPatch(section)
			}
			patches[i] = patch
			return nil
		})
	}
	_ = g.Wait()

	for i, section := range missing {
		st.Plan.SetOnce(section, patches[i])
	}
}

// registerItinerary assigns component identities to the generated
// itinerary: one primary accommodation carrying the remaining options as
// alternatives, the transport options, and one component per day slot.
func (o *Orchestrator) registerItinerary(st *types.State, it *itinerary.Itinerary) {
	cs := &st.Components

	if len(it.AccommodationOptions) > 0 {
		primary := it.AccommodationOptions[0]
		alts := make([]types.Component, 0, len(it.AccommodationOptions)-1)
		for _, opt := range it.AccommodationOptions[1:] {
			alts = append(alts, accommodationComponent(opt))
		}
		c := accommodationComponent(primary)
		c.Alternatives = alts
		o.registry.Register(cs, c)
	}

	for _, t := range it.TransportOptions {
		o.registry.Register(cs, types.Component{
			Kind:        types.KindTransport,
			Name:        t.Mode,
			Description: t.Description,
			Selected:    t.Recommended,
		})
	}

	for _, day := range it.Days {
		o.registerSlot(cs, day.DayNumber, types.SlotMorning, day.Morning)
		o.registerSlot(cs, day.DayNumber, types.SlotAfternoon, day.Afternoon)
		o.registerSlot(cs, day.DayNumber, types.SlotEvening, day.Evening)
	}
}

func (o *Orchestrator) registerSlot(cs *types.ComponentSet, day int, slot types.SlotName, ts itinerary.TimeSlot) {
	switch {
	case ts.Activity != nil:
		o.registry.Register(cs, types.Component{
			Kind:        types.KindActivity,
			Name:        ts.Activity.Name,
			Description: ts.Activity.Description,
			Day:         day,
			Slot:        slot,
		})
	case ts.Restaurant != nil:
		o.registry.Register(cs, types.Component{
			Kind:        types.KindRestaurant,
			Name:        ts.Restaurant.Name,
			Description: ts.Restaurant.Description,
			Day:         day,
			Slot:        slot,
			Fields: map[string]string{
				"cuisine":     ts.Restaurant.Cuisine,
				"price_range": ts.Restaurant.PriceRange,
			},
		})
	}
}

func accommodationComponent(opt itinerary.AccommodationOption) types.Component {
	fields := map[string]string{"location": opt.Location}
	if opt.BookingURL != "" {
		fields["booking_url"] = opt.BookingURL
	}
	return types.Component{
		Kind:        types.KindAccommodation,
		Name:        opt.Name,
		Description: opt.Description,
		PriceNight:  opt.PricePerNight,
		Fields:      fields,
	}
}
