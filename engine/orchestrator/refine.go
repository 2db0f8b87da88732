package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/types"
)

// RunRefinement applies an explicit refinement action, bypassing message
// classification. Used by the direct refinement API.
func (o *Orchestrator) RunRefinement(ctx context.Context, st *types.State, in intent.Intent) (*Result, error) {
	if st.Components.Empty() || !st.Flags.ItineraryPresented {
		return nil, types.NewError(types.ErrInvalidRequest, "no itinerary to refine yet")
	}
	started := time.Now()
	res, err := o.refineStage(ctx, st, in)
	if err != nil {
		return nil, err
	}
	st.AddMessage(types.NewAssistantMessage(res.Reply))
	st.TrimHistory(maxHistory)
	o.observer.TurnHandled(string(res.Stage), time.Since(started))
	return res, nil
}

// refineStage dispatches a classified refinement against the registered
// components. Every path leaves unrelated components untouched.
func (o *Orchestrator) refineStage(ctx context.Context, st *types.State, in intent.Intent) (*Result, error) {
	switch in.Kind {
	case intent.KindSelectAccommodation:
		return o.selectAccommodation(ctx, st, in.Index)
	case intent.KindBudgetChange:
		return o.budgetChange(ctx, st)
	case intent.KindSwapComponent:
		return o.swapComponent(st, in)
	case intent.KindFinalize:
		return o.finalize(st)
	default:
		return &Result{Stage: router.StageRefine, Reply: refineHelp}, nil
	}
}

// refineHelp lists the available refinements. Shown when a message against
// an active itinerary matches no refinement pattern.
const refineHelp = "I wasn't sure what you'd like to change. You can pick a hotel by number, swap an activity, ask for cheaper options, or say it looks good to finalize."

// selectAccommodation promotes the picked option. Option 1 is the current
// primary; options 2 and 3 are its alternatives in presented order.
func (o *Orchestrator) selectAccommodation(ctx context.Context, st *types.State, index int) (*Result, error) {
	cs := &st.Components

	primary, ok := o.registry.Primary(cs)
	if !ok {
		return &Result{
			Stage: router.StageRefine,
			Reply: "There's no accommodation to choose from yet.",
		}, nil
	}

	if index == 0 {
		o.registry.Update(cs, primary.ID, func(c *types.Component) { c.Selected = true })
		st.Flags.HasSelections = true
		return &Result{
			Stage: router.StageRefine,
			Reply: fmt.Sprintf("**%s** is already option 1, so you're all set.", primary.Name),
		}, nil
	}

	demoted := *primary
	newID, err := o.registry.SelectAlternative(cs, index-1)
	if err != nil {
		return &Result{
			Stage: router.StageRefine,
			Reply: fmt.Sprintf("I only have %d accommodation options; option %d doesn't exist.", len(primary.Alternatives)+1, index+1),
		}, nil
	}
	o.archiveSuperseded(ctx, st.SessionID, demoted)

	st.Flags.HasSelections = true
	promoted, _ := o.registry.Get(cs, newID)
	return &Result{
		Stage: router.StageRefine,
		Reply: fmt.Sprintf("**%s** is now your hotel. The other options stay available if you change your mind.", promoted.Name),
	}, nil
}

// budgetChange promotes the cheapest accommodation option.
func (o *Orchestrator) budgetChange(ctx context.Context, st *types.State) (*Result, error) {
	cs := &st.Components

	primary, ok := o.registry.Primary(cs)
	if !ok {
		return &Result{
			Stage: router.StageRefine,
			Reply: "There's no accommodation to compare yet.",
		}, nil
	}
	before := *primary

	id, err := o.registry.SelectCheapest(cs)
	if err != nil {
		return &Result{
			Stage: router.StageRefine,
			Reply: "I don't have any alternative accommodations to compare prices against.",
		}, nil
	}
	if id == before.ID {
		return &Result{
			Stage: router.StageRefine,
			Reply: fmt.Sprintf("**%s** at $%d/night is already the cheapest of your options.", before.Name, before.PriceNight),
		}, nil
	}
	o.archiveSuperseded(ctx, st.SessionID, before)

	st.Flags.HasSelections = true
	cheapest, _ := o.registry.Get(cs, id)
	return &Result{
		Stage: router.StageRefine,
		Reply: fmt.Sprintf("Switched you to **%s** at $%d/night, the cheapest of your options.", cheapest.Name, cheapest.PriceNight),
	}, nil
}

// swapComponent flags the referenced component for replacement. The actual
// replacement arrives from a later research pass; until then the request is
// queued.
func (o *Orchestrator) swapComponent(st *types.State, in intent.Intent) (*Result, error) {
	cs := &st.Components

	target, ok := o.registry.Find(cs, in.Reference)
	if !ok {
		return &Result{
			Stage: router.StageRefine,
			Reply: fmt.Sprintf("I couldn't tell which part of the itinerary you meant by %q. Could you name the activity or the day and time slot?", in.Reference),
		}, nil
	}

	o.registry.MarkPendingReplacement(cs, target.ID, in.Request)
	st.PendingActions = append(st.PendingActions, types.PendingAction{
		Type:        types.PendingSwap,
		ComponentID: target.ID,
		Request:     in.Request,
		CreatedAt:   time.Now(),
	})

	o.logger.Info("swap queued",
		zap.String("session_id", st.SessionID),
		zap.String("component_id", target.ID),
	)
	where := describePosition(target)
	return &Result{
		Stage: router.StageRefine,
		Reply: fmt.Sprintf("Got it. I'll find a replacement for **%s**%s and update your itinerary.", target.Name, where),
	}, nil
}

// finalize renders the final trip summary from the selected and confirmed
// components.
func (o *Orchestrator) finalize(st *types.State) (*Result, error) {
	final := o.registry.FinalSet(&st.Components)
	st.Flags.ConfirmedFinal = true

	var b strings.Builder
	b.WriteString("Wonderful! Your trip is set.\n")
	if st.Plan.Summary != nil {
		fmt.Fprintf(&b, "\n**%s → %s**, %s to %s\n",
			st.Plan.Summary.Origin, st.Plan.Summary.Destination,
			st.Plan.Summary.Departure, st.Plan.Summary.Return)
	}
	if len(final) > 0 {
		b.WriteString("\nYour selections:\n")
		for _, c := range final {
			fmt.Fprintf(&b, "- %s: **%s**%s\n", c.Kind, c.Name, describePosition(c))
		}
	}
	b.WriteString("\nHave a great trip!")
	return &Result{Stage: router.StageRefine, Reply: b.String()}, nil
}

func (o *Orchestrator) archiveSuperseded(ctx context.Context, sessionID string, c types.Component) {
	if err := o.archiver.RecordSuperseded(ctx, sessionID, c); err != nil {
		o.logger.Warn("failed to archive superseded component",
			zap.String("session_id", sessionID),
			zap.String("component_id", c.ID),
			zap.Error(err),
		)
	}
}

func describePosition(c *types.Component) string {
	if c.Day > 0 && c.Slot != "" {
		return fmt.Sprintf(" (day %d, %s)", c.Day, c.Slot)
	}
	if c.Day > 0 {
		return fmt.Sprintf(" (day %d)", c.Day)
	}
	return ""
}
