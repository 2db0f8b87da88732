package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/testutil"
	"github.com/tripflow/tripflow/types"
)

// presentedSession runs a session up to a presented itinerary: three
// accommodation options (Foundry $280 primary, Riverside $160, Mountain
// Cabin $120), transport, and two planned days.
func presentedSession(t *testing.T) (*harness, *types.State) {
	t.Helper()
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo()}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: validItineraryJSON()}),
		workingSearch(),
	)
	st := types.NewState("s1")
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "plan my Asheville trip")
	require.NoError(t, err)
	_, err = h.orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)
	require.True(t, st.Flags.ItineraryPresented)
	return h, st
}

func TestRefineSelectSecondHotel(t *testing.T) {
	h, st := presentedSession(t)

	res, err := h.orch.RunTurn(context.Background(), st, "let's do hotel 2")
	require.NoError(t, err)
	assert.Equal(t, router.StageRefine, res.Stage)
	assert.Contains(t, res.Reply, "Riverside Inn")
	assert.True(t, st.Flags.HasSelections)

	primary, ok := h.orch.registry.Primary(&st.Components)
	require.True(t, ok)
	assert.Equal(t, "Riverside Inn", primary.Name)
	assert.True(t, primary.Selected)

	// demoted primary leads the alternatives, the untouched one follows
	require.Len(t, primary.Alternatives, 2)
	assert.Equal(t, "The Foundry Hotel", primary.Alternatives[0].Name)
	assert.Equal(t, "Mountain Cabin", primary.Alternatives[1].Name)

	// the superseded record went to the archive
	require.Len(t, h.archiver.records, 1)
	assert.Equal(t, "The Foundry Hotel", h.archiver.records[0].Name)
}

func TestRefineSelectCurrentPrimary(t *testing.T) {
	h, st := presentedSession(t)

	res, err := h.orch.RunTurn(context.Background(), st, "select option 1")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "already option 1")
	assert.True(t, st.Flags.HasSelections)
	assert.Empty(t, h.archiver.records, "nothing was superseded")
}

func TestRefineBudgetChange(t *testing.T) {
	h, st := presentedSession(t)

	res, err := h.orch.RunTurn(context.Background(), st, "do you have a cheaper hotel")
	require.NoError(t, err)
	assert.Equal(t, router.StageRefine, res.Stage)
	assert.Contains(t, res.Reply, "Mountain Cabin")
	assert.Contains(t, res.Reply, "$120/night")

	primary, ok := h.orch.registry.Primary(&st.Components)
	require.True(t, ok)
	assert.Equal(t, "Mountain Cabin", primary.Name)
}

func TestRefineSwapQueuesPendingAction(t *testing.T) {
	h, st := presentedSession(t)

	res, err := h.orch.RunTurn(context.Background(), st, "replace the day 2 morning walk with something indoors")
	require.NoError(t, err)
	assert.Equal(t, router.StageRefine, res.Stage)
	assert.Contains(t, res.Reply, "I'll find a replacement")
	assert.Contains(t, res.Reply, "day 2, morning")

	require.Len(t, st.PendingActions, 1)
	pa := st.PendingActions[0]
	assert.Equal(t, types.PendingSwap, pa.Type)

	target, ok := st.Components.Get(pa.ComponentID)
	require.True(t, ok)
	assert.Equal(t, 2, target.Day)
	assert.Equal(t, types.SlotMorning, target.Slot)
	assert.Equal(t, types.StatusPendingReplacement, target.Status)
}

func TestRefineSwapUnresolvedReferenceAsksBack(t *testing.T) {
	h, st := presentedSession(t)

	res, err := h.orch.RunTurn(context.Background(), st, "skip the helicopter ride")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "couldn't tell which part")
	assert.Empty(t, st.PendingActions)
}

func TestRefineFinalize(t *testing.T) {
	h, st := presentedSession(t)

	_, err := h.orch.RunTurn(context.Background(), st, "select option 2")
	require.NoError(t, err)

	res, err := h.orch.RunTurn(context.Background(), st, "looks good, let's book it")
	require.NoError(t, err)
	assert.Equal(t, router.StageRefine, res.Stage)
	assert.Contains(t, res.Reply, "Have a great trip!")
	assert.Contains(t, res.Reply, "Riverside Inn")
	assert.True(t, st.Flags.ConfirmedFinal)
}

func TestRunRefinementDirect(t *testing.T) {
	h, st := presentedSession(t)

	res, err := h.orch.RunRefinement(context.Background(), st, intent.Intent{
		Kind:  intent.KindSelectAccommodation,
		Index: 1,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Riverside Inn")

	primary, _ := h.orch.registry.Primary(&st.Components)
	assert.Equal(t, "Riverside Inn", primary.Name)
}

func TestRunRefinementRequiresItinerary(t *testing.T) {
	h := newHarness(t,
		&scriptedExtractor{},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(),
		workingSearch(),
	)
	st := types.NewState("s1")

	_, err := h.orch.RunRefinement(context.Background(), st, intent.Intent{Kind: intent.KindFinalize})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidRequest, types.GetErrorCode(err))
}

func TestSmallTalkAfterSelectionKeepsItinerary(t *testing.T) {
	h, st := presentedSession(t)
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "let's do hotel 2")
	require.NoError(t, err)
	before := st.Components.Len()

	res, err := h.orch.RunTurn(ctx, st, "thanks for the help")
	require.NoError(t, err)
	assert.Equal(t, router.StageRefine, res.Stage)
	assert.Contains(t, res.Reply, "what you'd like to change")
	assert.Equal(t, before, st.Components.Len(), "nothing was re-registered")

	primary, ok := h.orch.registry.Primary(&st.Components)
	require.True(t, ok)
	assert.Equal(t, "Riverside Inn", primary.Name)
	assert.True(t, primary.Selected)
}

func TestSwapFulfilledOnNextTurn(t *testing.T) {
	h, st := presentedSession(t)
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "replace the day 2 morning walk with something indoors")
	require.NoError(t, err)
	require.Len(t, st.PendingActions, 1)
	flaggedID := st.PendingActions[0].ComponentID

	res, err := h.orch.RunTurn(ctx, st, "thanks")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "I've swapped **Botanical Gardens walk**")
	assert.Contains(t, res.Reply, "(day 2, morning)")
	assert.Empty(t, st.PendingActions)

	old, ok := st.Components.Get(flaggedID)
	require.True(t, ok, "superseded record stays addressable")
	assert.Equal(t, types.StatusSuperseded, old.Status)

	var replacement *types.Component
	for _, c := range h.orch.registry.ListByDay(&st.Components, 2) {
		if c.Slot == types.SlotMorning {
			replacement = c
		}
	}
	require.NotNil(t, replacement)
	assert.Equal(t, "Asheville guide", replacement.Name)
	assert.Equal(t, "https://example.com/guide", replacement.Fields["source_url"])

	require.Len(t, h.archiver.records, 1)
	assert.Equal(t, "Botanical Gardens walk", h.archiver.records[0].Name)
}
