// Package router maps conversation state to the stage that handles the
// turn. The decision is a pure function of state plus the classified
// intent, so identical states always route identically.
package router

import (
	"go.uber.org/zap"

	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/types"
)

// Stage is the turn handler the router selects.
type Stage string

const (
	StageRefine   Stage = "refine"
	StageAskMore  Stage = "ask_more"
	StageDiscover Stage = "discover"
	StagePlan     Stage = "plan"
)

// Decision is the routing outcome for one turn. MissingSlot is set only for
// StageAskMore; Intent only for StageRefine.
type Decision struct {
	Stage       Stage
	MissingSlot string
	Intent      intent.Intent
}

// Router decides the stage for each turn. Precedence is fixed: refine, then
// ask_more, then discover, then plan. The first matching stage wins.
type Router struct {
	classifier intent.Classifier
	logger     *zap.Logger
}

// New creates a router using the given intent classifier.
func New(classifier intent.Classifier, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		classifier: classifier,
		logger:     logger.With(zap.String("component", "router")),
	}
}

// Decide selects the stage for the current turn. It reads state but never
// mutates it.
func (r *Router) Decide(st *types.State) Decision {
	latest := st.LastUserMessage()
	hasItinerary := !st.Components.Empty() && st.Flags.ItineraryPresented

	if hasItinerary {
		if in := r.classifier.Classify(latest, true); in.Kind != intent.KindNone {
			r.logger.Debug("routed", zap.String("stage", string(StageRefine)), zap.String("intent", string(in.Kind)))
			return Decision{Stage: StageRefine, Intent: in}
		}
	}

	if missing := st.Extracted.MissingRequired(); len(missing) > 0 {
		r.logger.Debug("routed", zap.String("stage", string(StageAskMore)), zap.String("slot", missing[0]))
		return Decision{Stage: StageAskMore, MissingSlot: missing[0]}
	}
	if !st.Extracted.HasDestination() && st.Discovery.Offered && !st.Discovery.Resolved {
		// a suggestion list is pending an answer
		r.logger.Debug("routed", zap.String("stage", string(StageAskMore)), zap.String("slot", types.SlotDestination))
		return Decision{Stage: StageAskMore, MissingSlot: types.SlotDestination}
	}
	if st.Clarification.Status == types.ClarificationAwaiting {
		r.logger.Debug("routed", zap.String("stage", string(StageAskMore)), zap.String("reason", "awaiting_confirmation"))
		return Decision{Stage: StageAskMore}
	}

	if !st.Extracted.HasDestination() {
		r.logger.Debug("routed", zap.String("stage", string(StageDiscover)))
		return Decision{Stage: StageDiscover}
	}

	r.logger.Debug("routed", zap.String("stage", string(StagePlan)))
	return Decision{Stage: StagePlan}
}
