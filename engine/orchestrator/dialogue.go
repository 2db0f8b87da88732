package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/engine/confirm"
	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/types"
)

// slotQuestions are the clarification prompts, one per required slot. Each
// ask_more turn asks for exactly one slot.
var slotQuestions = map[string]string{
	types.SlotOrigin:        "Where will you be travelling from?",
	types.SlotDestination:   "Where would you like to go?",
	types.SlotDepartureDate: "When would you like to depart?",
	types.SlotReturnDate:    "When will you be coming back?",
	types.SlotPurpose:       "What's the occasion for this trip?",
	types.SlotTravelPack:    "Who's travelling? Solo, couple, family, or friends?",
}

// resolveConfirmation closes an open confirmation exchange. An affirmative
// reply stores the fingerprint of the confirmed slots; anything else drops
// back to incomplete so corrections re-enter the normal flow.
func (o *Orchestrator) resolveConfirmation(st *types.State, userMessage string) {
	if st.Clarification.Status != types.ClarificationAwaiting {
		return
	}
	if intent.IsAffirmation(userMessage) {
		st.ConfirmedHash = confirm.Fingerprint(st.Extracted)
		st.Clarification.Status = types.ClarificationComplete
		o.logger.Debug("trip details confirmed", zap.String("session_id", st.SessionID))
		return
	}
	st.Clarification.Status = types.ClarificationIncomplete
}

// askMoreStage asks for exactly one missing slot, or re-prompts an open
// exchange without repeating content already shown.
func (o *Orchestrator) askMoreStage(st *types.State, missingSlot string) *Result {
	if missingSlot == types.SlotDestination && st.Discovery.Offered && !st.Discovery.Resolved {
		// The suggestion list was already shown; just re-prompt.
		return &Result{
			Stage: router.StageAskMore,
			Reply: "Which of the suggested destinations would you like? Reply with the number or name, or tell me somewhere else entirely.",
		}
	}
	if missingSlot == "" && st.Clarification.Status == types.ClarificationAwaiting {
		return &Result{
			Stage: router.StageAskMore,
			Reply: st.Clarification.Summary + "\n\nIs that right?",
		}
	}

	question, ok := slotQuestions[missingSlot]
	if !ok {
		question = slotQuestions[types.SlotTravelPack]
	}
	st.Clarification.Status = types.ClarificationIncomplete
	st.Clarification.Missing = st.Extracted.MissingRequired()
	return &Result{Stage: router.StageAskMore, Reply: question}
}

// discoverStage offers destination suggestions once. The list is rendered
// with a single call to action; later turns only re-prompt.
func (o *Orchestrator) discoverStage(ctx context.Context, st *types.State) *Result {
	suggestions, err := o.discover.Suggest(ctx, st.Extracted)
	if err != nil {
		o.logger.Warn("destination discovery failed",
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
		return &Result{
			Stage: router.StageDiscover,
			Reply: slotQuestions[types.SlotDestination],
		}
	}

	st.Discovery = types.Discovery{
		Suggestions: suggestions,
		Offered:     true,
		Resolved:    false,
	}

	var b strings.Builder
	b.WriteString("Here are a few destinations that could fit:\n\n")
	for i, s := range suggestions {
		fmt.Fprintf(&b, "%d. **%s**", i+1, s.Name)
		if s.Description != "" {
			b.WriteString(" - " + s.Description)
		}
		b.WriteString("\n")
	}
	b.WriteString("\nReply with a number or name to pick one, or tell me somewhere else.")
	return &Result{Stage: router.StageDiscover, Reply: b.String()}
}

// confirmationSummary renders the gathered slots for a yes/no check.
func confirmationSummary(info types.ExtractedInfo) string {
	var b strings.Builder
	b.WriteString("Let me make sure I have this right:\n\n")
	fmt.Fprintf(&b, "- **From**: %s\n", info.Origin)
	fmt.Fprintf(&b, "- **To**: %s\n", info.Destination)
	fmt.Fprintf(&b, "- **Departing**: %s\n", info.DepartureDate)
	fmt.Fprintf(&b, "- **Returning**: %s\n", info.ReturnDate)
	fmt.Fprintf(&b, "- **Occasion**: %s\n", info.Purpose)
	fmt.Fprintf(&b, "- **Travelling as**: %s\n", info.TravelPack)
	return b.String()
}
