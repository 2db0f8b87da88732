package orchestrator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripflow/tripflow/engine/extract"
	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/itinerary"
	"github.com/tripflow/tripflow/engine/registry"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/engine/steps"
	"github.com/tripflow/tripflow/search"
	"github.com/tripflow/tripflow/testutil"
	"github.com/tripflow/tripflow/types"
)

// scriptedExtractor returns one pre-set slot result per turn; past the end
// of the script it keeps the current slots.
type scriptedExtractor struct {
	mu    sync.Mutex
	infos []types.ExtractedInfo
	calls int
}

func (e *scriptedExtractor) Extract(_ context.Context, _ []types.Message, current types.ExtractedInfo) (types.ExtractedInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.calls <= len(e.infos) {
		return e.infos[e.calls-1], nil
	}
	return current, nil
}

type failingExtractor struct{}

func (failingExtractor) Extract(_ context.Context, _ []types.Message, current types.ExtractedInfo) (types.ExtractedInfo, error) {
	return current, types.NewError(types.ErrExtractionFailed, "model unavailable")
}

type stubDiscoverer struct {
	suggestions []types.Suggestion
	err         error
	calls       int
}

func (d *stubDiscoverer) Suggest(context.Context, types.ExtractedInfo) ([]types.Suggestion, error) {
	d.calls++
	if d.err != nil {
		return nil, d.err
	}
	return d.suggestions, nil
}

type recordingObserver struct {
	mu        sync.Mutex
	stages    []string
	fallbacks []string
	attempts  []int
	exhausted int
}

func (r *recordingObserver) TurnHandled(stage string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingObserver) StepFallback(section string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks = append(r.fallbacks, section)
}

func (r *recordingObserver) GenerationAttempts(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, n)
}

func (r *recordingObserver) GenerationExhausted() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exhausted++
}

type recordingArchiver struct {
	mu      sync.Mutex
	records []types.Component
}

func (r *recordingArchiver) RecordSuperseded(_ context.Context, _ string, c types.Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, c)
	return nil
}

func completeInfo() types.ExtractedInfo {
	return types.ExtractedInfo{
		Origin:        "Charlotte, NC",
		Destination:   "Asheville, NC",
		DepartureDate: "2026-09-04",
		ReturnDate:    "2026-09-06",
		Purpose:       "anniversary",
		TravelPack:    "couple",
	}
}

type harness struct {
	orch     *Orchestrator
	observer *recordingObserver
	archiver *recordingArchiver
}

func newHarness(t *testing.T, extractor extract.Extractor, discoverer steps.Discoverer, genProvider *testutil.ScriptedProvider, searchClients []search.Client) *harness {
	t.Helper()
	obs := &recordingObserver{}
	arch := &recordingArchiver{}
	orch := New(Config{
		Router:     router.New(intent.NewKeywordClassifier(), nil),
		Extractor:  extractor,
		Discoverer: discoverer,
		Generator:  itinerary.NewGenerator(genProvider, "test-model", nil),
		Registry:   registry.New(nil),
		Steps: []steps.Step{
			steps.NewTransportStep(searchClients, nil),
			steps.NewStaysStep(searchClients, nil),
			steps.NewActivitiesStep(searchClients, nil),
		},
		Replacer: steps.NewReplacementFinder(searchClients, nil),
		Observer: obs,
		Archiver: arch,
	})
	return &harness{orch: orch, observer: obs, archiver: arch}
}

func workingSearch() []search.Client {
	return []search.Client{&testutil.StubSearch{Links: []types.Link{
		{Title: "Asheville guide", URL: "https://example.com/guide"},
		{Title: "The Foundry Hotel", URL: "https://example.com/foundry"},
	}}}
}

func validItineraryJSON() string {
	return testutil.MustJSON(testutil.ValidItinerary(2))
}

func TestHappyPathConfirmThenPlan(t *testing.T) {
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo()}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: validItineraryJSON()}),
		workingSearch(),
	)
	st := types.NewState("s1")
	ctx := context.Background()

	// turn 1: everything known, but nothing confirmed yet
	res, err := h.orch.RunTurn(ctx, st, "anniversary trip from Charlotte to Asheville, Sept 4-6, just the two of us")
	require.NoError(t, err)
	assert.Equal(t, router.StagePlan, res.Stage)
	assert.Contains(t, res.Reply, "Shall I plan the trip")
	assert.Contains(t, res.Reply, "Asheville, NC")
	assert.Equal(t, types.ClarificationAwaiting, st.Clarification.Status)
	assert.Nil(t, res.Itinerary)
	assert.True(t, st.Components.Empty())

	// turn 2: affirmation unlocks research and generation
	res, err = h.orch.RunTurn(ctx, st, "yes, that's right")
	require.NoError(t, err)
	assert.Equal(t, router.StagePlan, res.Stage)
	require.NotNil(t, res.Itinerary)
	assert.True(t, st.Flags.ItineraryPresented)
	assert.NotEmpty(t, st.ConfirmedHash)

	require.NotNil(t, st.Plan.Summary)
	assert.Equal(t, "Asheville, NC", st.Plan.Summary.Destination)
	assert.True(t, st.Plan.Complete())

	// one primary accommodation with two alternatives, plus transport and slots
	assert.False(t, st.Components.Empty())
	primary, ok := registry.New(nil).Primary(&st.Components)
	require.True(t, ok)
	assert.Equal(t, "The Foundry Hotel", primary.Name)
	assert.Len(t, primary.Alternatives, 2)

	assert.Equal(t, []string{"plan", "plan"}, h.observer.stages)
	assert.Equal(t, []int{1}, h.observer.attempts)
	assert.Empty(t, h.observer.fallbacks)
}

func TestAskMoreOneSlotAtATime(t *testing.T) {
	partial := completeInfo()
	partial.Origin = ""
	partial.Purpose = ""
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{partial}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(),
		workingSearch(),
	)
	st := types.NewState("s1")

	res, err := h.orch.RunTurn(context.Background(), st, "a trip to Asheville Sept 4-6 as a couple")
	require.NoError(t, err)
	assert.Equal(t, router.StageAskMore, res.Stage)
	assert.Equal(t, "Where will you be travelling from?", res.Reply)
	assert.Equal(t, []string{types.SlotOrigin, types.SlotPurpose}, st.Clarification.Missing)
}

func TestStepFailureDegradesToFallback(t *testing.T) {
	failing := []search.Client{&testutil.StubSearch{Err: types.NewError(types.ErrUpstreamError, "quota exceeded")}}
	st := types.NewState("s1")

	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo()}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: validItineraryJSON()}),
		failing,
	)
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "plan my Asheville trip")
	require.NoError(t, err)
	res, err := h.orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)

	// the turn still completes with a presented itinerary
	require.NotNil(t, res.Itinerary)
	assert.True(t, st.Flags.ItineraryPresented)

	// every failed section carries the uniform degraded patch
	require.NotNil(t, st.Plan.Stays)
	assert.Equal(t, "stays unavailable", st.Plan.Stays.Summary)
	require.NotNil(t, st.Plan.Stays.Results)
	assert.Empty(t, st.Plan.Stays.Results)
	assert.Equal(t, "transport unavailable", st.Plan.Transport.Summary)
	assert.Equal(t, "activities unavailable", st.Plan.Activities.Summary)

	assert.ElementsMatch(t, []string{"transport", "stays", "activities"}, h.observer.fallbacks)
}

func TestGenerationExhaustionIsTerminalForTheTurn(t *testing.T) {
	invalid := testutil.ValidItinerary(2)
	invalid.ProTips = nil

	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo()}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: testutil.MustJSON(invalid)}),
		workingSearch(),
	)
	st := types.NewState("s1")
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "plan my Asheville trip")
	require.NoError(t, err)
	res, err := h.orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)

	assert.Equal(t, router.StagePlan, res.Stage)
	assert.Nil(t, res.Itinerary)
	assert.Contains(t, res.Reply, "Nothing about your trip details has been lost")

	// no partial itinerary is ever registered or presented
	assert.True(t, st.Components.Empty())
	assert.False(t, st.Flags.ItineraryPresented)
	assert.Equal(t, 1, h.observer.exhausted)
	assert.Empty(t, h.observer.attempts)

	// the research already done is kept for the retry
	assert.True(t, st.Plan.Complete())
}

func TestDiscoveryOffersListOnce(t *testing.T) {
	vague := completeInfo()
	vague.Destination = ""
	vague.DestinationHint = "somewhere in the mountains"

	discoverer := &stubDiscoverer{suggestions: []types.Suggestion{
		{Name: "Asheville, NC", Description: "Mountain town with a food scene"},
		{Name: "Gatlinburg, TN", Description: "Gateway to the Smokies"},
		{Name: "Boone, NC", Description: "High country hikes"},
	}}
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{vague}},
		discoverer,
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: validItineraryJSON()}),
		workingSearch(),
	)
	st := types.NewState("s1")
	ctx := context.Background()

	// turn 1: the full list with a single call to action
	res, err := h.orch.RunTurn(ctx, st, "somewhere in the mountains, from Charlotte, Sept 4-6, anniversary, couple")
	require.NoError(t, err)
	assert.Equal(t, router.StageDiscover, res.Stage)
	assert.Contains(t, res.Reply, "1. **Asheville, NC**")
	assert.Contains(t, res.Reply, "3. **Boone, NC**")
	assert.Contains(t, res.Reply, "Reply with a number or name")
	assert.True(t, st.Discovery.Offered)
	assert.False(t, st.Discovery.Resolved)

	// turn 2: an undecided reply re-prompts without re-issuing the list
	res, err = h.orch.RunTurn(ctx, st, "hmm, not sure yet")
	require.NoError(t, err)
	assert.Equal(t, router.StageAskMore, res.Stage)
	assert.NotContains(t, res.Reply, "1. **Asheville, NC**")
	assert.Contains(t, res.Reply, "Which of the suggested destinations")
	assert.Equal(t, 1, discoverer.calls, "suggestion list generated once")

	// turn 3: picking by number resolves the destination
	res, err = h.orch.RunTurn(ctx, st, "2")
	require.NoError(t, err)
	assert.True(t, st.Discovery.Resolved)
	assert.Equal(t, "Gatlinburg, TN", st.Extracted.Destination)
	assert.Equal(t, router.StagePlan, res.Stage)
	assert.Contains(t, res.Reply, "Shall I plan the trip")
}

func TestDiscoveryFailureFallsBackToDirectQuestion(t *testing.T) {
	vague := completeInfo()
	vague.Destination = ""

	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{vague}},
		&stubDiscoverer{err: types.NewError(types.ErrStepFailed, "model unavailable")},
		testutil.NewScriptedProvider(),
		workingSearch(),
	)
	st := types.NewState("s1")

	res, err := h.orch.RunTurn(context.Background(), st, "somewhere fun")
	require.NoError(t, err)
	assert.Equal(t, router.StageDiscover, res.Stage)
	assert.Equal(t, "Where would you like to go?", res.Reply)
	assert.False(t, st.Discovery.Offered)
}

func TestExtractionFailureKeepsPriorSlots(t *testing.T) {
	h := newHarness(t, failingExtractor{}, &stubDiscoverer{}, testutil.NewScriptedProvider(), workingSearch())
	st := types.NewState("s1")
	st.Extracted = completeInfo()

	res, err := h.orch.RunTurn(context.Background(), st, "sounds great")
	require.NoError(t, err)
	assert.Equal(t, completeInfo(), st.Extracted)
	assert.NotEmpty(t, res.Reply)
}

func TestCorrectionAfterConfirmationReopensGate(t *testing.T) {
	changed := completeInfo()
	changed.ReturnDate = "2026-09-07"

	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo(), completeInfo(), changed}},
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

	// NOTE: the itinerary is already presented, so a date change is not a
	// refinement intent and routes back through the plan gate
	res, err := h.orch.RunTurn(ctx, st, "wait, we're coming back on the 7th instead")
	require.NoError(t, err)
	assert.Equal(t, router.StagePlan, res.Stage)
	assert.Contains(t, res.Reply, "Shall I plan the trip")
	assert.Contains(t, res.Reply, "2026-09-07")
}

func TestHistoryTrimmed(t *testing.T) {
	partial := types.ExtractedInfo{}
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{partial}},
		&stubDiscoverer{err: types.NewError(types.ErrStepFailed, "no suggestions")},
		testutil.NewScriptedProvider(),
		workingSearch(),
	)
	st := types.NewState("s1")

	for i := 0; i < 25; i++ {
		_, err := h.orch.RunTurn(context.Background(), st, "still thinking about it")
		require.NoError(t, err)
	}
	assert.LessOrEqual(t, len(st.History), 30)
}

func TestReconfirmedDateChangeRebuildsSummary(t *testing.T) {
	changed := completeInfo()
	changed.ReturnDate = "2026-09-07"
	stub := &testutil.StubSearch{Links: []types.Link{
		{Title: "Asheville guide", URL: "https://example.com/guide"},
	}}
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo(), completeInfo(), changed, changed}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: validItineraryJSON()}),
		[]search.Client{stub},
	)
	st := types.NewState("s1")
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "plan my Asheville trip")
	require.NoError(t, err)
	_, err = h.orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)
	require.True(t, st.Flags.ItineraryPresented)
	researched := len(stub.Queries())

	// the correction re-opens the confirmation gate
	res, err := h.orch.RunTurn(ctx, st, "we actually fly back on the 7th")
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "2026-09-07")
	assert.Equal(t, types.ClarificationAwaiting, st.Clarification.Status)

	// re-confirmation rebuilds on the corrected facts
	res, err = h.orch.RunTurn(ctx, st, "yes, that's right")
	require.NoError(t, err)
	require.NotNil(t, res.Itinerary)
	require.NotNil(t, st.Plan.Summary)
	assert.Equal(t, "2026-09-07", st.Plan.Summary.Return)

	// a date-only change keeps the research sections
	assert.Equal(t, researched, len(stub.Queries()))

	// the rebuild replaced the old components instead of stacking on them
	accs := h.orch.registry.ListByKind(&st.Components, types.KindAccommodation)
	assert.Len(t, accs, 1)
}

func TestReconfirmedDestinationChangeRedoesResearch(t *testing.T) {
	changed := completeInfo()
	changed.Destination = "Gatlinburg, TN"
	stub := &testutil.StubSearch{Links: []types.Link{
		{Title: "Gatlinburg guide", URL: "https://example.com/gatlinburg"},
	}}
	h := newHarness(t,
		&scriptedExtractor{infos: []types.ExtractedInfo{completeInfo(), completeInfo(), changed, changed}},
		&stubDiscoverer{},
		testutil.NewScriptedProvider(testutil.ScriptedResponse{Content: validItineraryJSON()}),
		[]search.Client{stub},
	)
	st := types.NewState("s1")
	ctx := context.Background()

	_, err := h.orch.RunTurn(ctx, st, "plan my Asheville trip")
	require.NoError(t, err)
	_, err = h.orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)
	researched := len(stub.Queries())

	_, err = h.orch.RunTurn(ctx, st, "make it Gatlinburg instead")
	require.NoError(t, err)
	require.Equal(t, types.ClarificationAwaiting, st.Clarification.Status)

	res, err := h.orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)
	require.NotNil(t, res.Itinerary)
	assert.Equal(t, "Gatlinburg, TN", st.Plan.Summary.Destination)

	// every research section was re-run for the new destination
	assert.Equal(t, researched+3, len(stub.Queries()))
	require.NotNil(t, st.Plan.Stays)
	assert.Contains(t, st.Plan.Stays.Summary, "Gatlinburg, TN")
}
