// Package orchestrator drives one conversation turn end to end: slot
// extraction, routing, research fan-out, validated itinerary generation,
// and refinement dispatch. It is the only writer of the session state's
// plan, components, flags, and confirmation hash.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/engine/extract"
	"github.com/tripflow/tripflow/engine/itinerary"
	"github.com/tripflow/tripflow/engine/registry"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/engine/steps"
	"github.com/tripflow/tripflow/types"
)

// maxHistory bounds the per-session message history.
const maxHistory = 30

// Observer receives turn-level measurements. The zero-cost NopObserver is
// used when metrics are disabled.
type Observer interface {
	TurnHandled(stage string, d time.Duration)
	StepFallback(section string)
	GenerationAttempts(n int)
	GenerationExhausted()
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) TurnHandled(string, time.Duration) {}
func (NopObserver) StepFallback(string)               {}
func (NopObserver) GenerationAttempts(int)            {}
func (NopObserver) GenerationExhausted()              {}

// Archiver records superseded components for audit. Failures are logged,
// never surfaced to the user.
type Archiver interface {
	RecordSuperseded(ctx context.Context, sessionID string, c types.Component) error
}

// NopArchiver discards audit records.
type NopArchiver struct{}

func (NopArchiver) RecordSuperseded(context.Context, string, types.Component) error { return nil }

// Replacer finds a concrete replacement for a component queued in a swap.
// A nil replacer leaves queued swaps pending.
type Replacer interface {
	FindReplacement(ctx context.Context, st *types.State, target types.Component, request string) (types.Component, error)
}

// Result is the outcome of one turn.
type Result struct {
	Stage     router.Stage
	Reply     string
	Itinerary *itinerary.Itinerary
}

// Orchestrator coordinates the per-turn collaborators.
type Orchestrator struct {
	router    *router.Router
	extractor extract.Extractor
	discover  steps.Discoverer
	generator *itinerary.Generator
	registry  *registry.Registry
	steps     map[types.SectionName]steps.Step
	replacer  Replacer
	observer  Observer
	archiver  Archiver
	logger    *zap.Logger
}

// Config wires an orchestrator. Router, Extractor, Generator, and Registry
// are required; everything else has a no-op default.
type Config struct {
	Router     *router.Router
	Extractor  extract.Extractor
	Discoverer steps.Discoverer
	Generator  *itinerary.Generator
	Registry   *registry.Registry
	Steps      []steps.Step
	Replacer   Replacer
	Observer   Observer
	Archiver   Archiver
	Logger     *zap.Logger
}

// New creates an orchestrator from the wired collaborators.
func New(cfg Config) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	obs := cfg.Observer
	if obs == nil {
		obs = NopObserver{}
	}
	arch := cfg.Archiver
	if arch == nil {
		arch = NopArchiver{}
	}
	stepMap := make(map[types.SectionName]steps.Step, len(cfg.Steps))
	for _, s := range cfg.Steps {
		stepMap[s.Section()] = steps.NewGuard(s, logger)
	}
	return &Orchestrator{
		router:    cfg.Router,
		extractor: cfg.Extractor,
		discover:  cfg.Discoverer,
		generator: cfg.Generator,
		registry:  cfg.Registry,
		steps:     stepMap,
		replacer:  cfg.Replacer,
		observer:  obs,
		archiver:  arch,
		logger:    logger.With(zap.String("component", "orchestrator")),
	}
}

// RunTurn processes one user message against the session state and returns
// the assistant reply. State mutations happen in a fixed order so replaying
// the same message sequence yields the same state.
func (o *Orchestrator) RunTurn(ctx context.Context, st *types.State, userMessage string) (*Result, error) {
	started := time.Now()

	st.AddMessage(types.NewUserMessage(userMessage))
	st.TrimHistory(maxHistory)

	o.refreshSlots(ctx, st)
	o.resolveSuggestion(st, userMessage)
	o.resolveConfirmation(st, userMessage)
	swapNotes := o.fulfillPendingSwaps(ctx, st)

	decision := o.router.Decide(st)

	var (
		res *Result
		err error
	)
	switch decision.Stage {
	case router.StageRefine:
		res, err = o.refineStage(ctx, st, decision.Intent)
	case router.StageAskMore:
		res = o.askMoreStage(st, decision.MissingSlot)
	case router.StageDiscover:
		res = o.discoverStage(ctx, st)
	default:
		res, err = o.planStage(ctx, st)
	}
	if err != nil {
		return nil, err
	}
	if swapNotes != "" {
		res.Reply = swapNotes + "\n\n" + res.Reply
	}

	st.AddMessage(types.NewAssistantMessage(res.Reply))
	st.TrimHistory(maxHistory)

	o.observer.TurnHandled(string(res.Stage), time.Since(started))
	o.logger.Info("turn handled",
		zap.String("session_id", st.SessionID),
		zap.String("stage", string(res.Stage)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return res, nil
}

// refreshSlots re-extracts the trip slots from history. Extraction failures
// keep the prior slots; the turn still proceeds on what is already known.
func (o *Orchestrator) refreshSlots(ctx context.Context, st *types.State) {
	updated, err := o.extractor.Extract(ctx, st.History, st.Extracted)
	if err != nil {
		o.logger.Warn("slot extraction failed, keeping prior slots",
			zap.String("session_id", st.SessionID),
			zap.Error(err),
		)
		return
	}
	st.Extracted = updated
}

// fulfillPendingSwaps runs the queued swap lookups. A fulfilled swap
// supersedes the flagged record, registers the replacement in its position,
// and dequeues the action; a failed lookup stays queued for the next turn.
// The returned notes are prepended to the turn's reply.
func (o *Orchestrator) fulfillPendingSwaps(ctx context.Context, st *types.State) string {
	if o.replacer == nil || len(st.PendingActions) == 0 {
		return ""
	}

	var notes []string
	var remaining []types.PendingAction
	for _, pa := range st.PendingActions {
		if pa.Type != types.PendingSwap {
			remaining = append(remaining, pa)
			continue
		}
		target, ok := st.Components.Get(pa.ComponentID)
		if !ok {
			continue
		}
		old := *target

		replacement, err := o.replacer.FindReplacement(ctx, st, old, pa.Request)
		if err != nil {
			o.logger.Warn("replacement lookup failed, keeping swap queued",
				zap.String("session_id", st.SessionID),
				zap.String("component_id", pa.ComponentID),
				zap.Error(err),
			)
			remaining = append(remaining, pa)
			continue
		}

		newID, err := o.registry.Replace(&st.Components, pa.ComponentID, replacement)
		if err != nil {
			remaining = append(remaining, pa)
			continue
		}
		o.archiveSuperseded(ctx, st.SessionID, old)

		placed, _ := o.registry.Get(&st.Components, newID)
		notes = append(notes, fmt.Sprintf("I've swapped **%s** for **%s**%s.",
			old.Name, placed.Name, describePosition(placed)))
		o.logger.Info("swap fulfilled",
			zap.String("session_id", st.SessionID),
			zap.String("superseded_id", pa.ComponentID),
			zap.String("replacement_id", newID),
		)
	}
	st.PendingActions = remaining
	return strings.Join(notes, "\n")
}

// resolveSuggestion closes an open destination-discovery exchange, either
// by matching the reply to the offered list or by a concrete destination
// arriving through extraction.
func (o *Orchestrator) resolveSuggestion(st *types.State, userMessage string) {
	if !st.Discovery.Offered || st.Discovery.Resolved {
		return
	}
	if st.Extracted.HasDestination() {
		st.Discovery.Resolved = true
		return
	}
	if s, ok := extract.PickSuggestion(userMessage, st.Discovery.Suggestions); ok {
		st.Extracted.Destination = s.Name
		st.Discovery.Resolved = true
		o.logger.Debug("suggestion picked",
			zap.String("session_id", st.SessionID),
			zap.String("destination", s.Name),
		)
	}
}
