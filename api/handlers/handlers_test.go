package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tripflow/tripflow/api"
	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/itinerary"
	"github.com/tripflow/tripflow/engine/orchestrator"
	"github.com/tripflow/tripflow/engine/registry"
	"github.com/tripflow/tripflow/engine/router"
	"github.com/tripflow/tripflow/engine/steps"
	"github.com/tripflow/tripflow/internal/session"
	"github.com/tripflow/tripflow/search"
	"github.com/tripflow/tripflow/testutil"
	"github.com/tripflow/tripflow/types"
)

// staticExtractor always reports the same fully gathered trip slots.
type staticExtractor struct {
	info types.ExtractedInfo
}

func (e staticExtractor) Extract(context.Context, []types.Message, types.ExtractedInfo) (types.ExtractedInfo, error) {
	return e.info, nil
}

type noDiscovery struct{}

func (noDiscovery) Suggest(context.Context, types.ExtractedInfo) ([]types.Suggestion, error) {
	return nil, types.NewError(types.ErrStepFailed, "not configured")
}

func tripInfo() types.ExtractedInfo {
	return types.ExtractedInfo{
		Origin:        "Charlotte, NC",
		Destination:   "Asheville, NC",
		DepartureDate: "2026-09-04",
		ReturnDate:    "2026-09-06",
		Purpose:       "anniversary",
		TravelPack:    "couple",
	}
}

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	provider := testutil.NewScriptedProvider(testutil.ScriptedResponse{
		Content: testutil.MustJSON(testutil.ValidItinerary(2)),
	})
	clients := []search.Client{&testutil.StubSearch{Links: []types.Link{
		{Title: "Asheville guide", URL: "https://example.com/guide"},
	}}}
	return orchestrator.New(orchestrator.Config{
		Router:     router.New(intent.NewKeywordClassifier(), nil),
		Extractor:  staticExtractor{info: tripInfo()},
		Discoverer: noDiscovery{},
		Generator:  itinerary.NewGenerator(provider, "test-model", nil),
		Registry:   registry.New(nil),
		Steps: []steps.Step{
			steps.NewTransportStep(clients, nil),
			steps.NewStaysStep(clients, nil),
			steps.NewActivitiesStep(clients, nil),
		},
	})
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorInfo      `json:"error"`
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestChatNewConversation(t *testing.T) {
	store := session.NewMemoryStore()
	h := NewChatHandler(newTestOrchestrator(t), store, zap.NewNop())

	rec, env := doJSON(t, h, http.MethodPost, "/v1/chat", api.ChatRequest{
		Message: "anniversary trip from Charlotte to Asheville",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var resp api.ChatResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "plan", resp.Stage)
	assert.Contains(t, resp.Message, "Shall I plan the trip")

	// the new session was persisted
	st, err := store.Load(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, types.ClarificationAwaiting, st.Clarification.Status)
}

func TestChatContinuesConversation(t *testing.T) {
	store := session.NewMemoryStore()
	h := NewChatHandler(newTestOrchestrator(t), store, zap.NewNop())

	_, env := doJSON(t, h, http.MethodPost, "/v1/chat", api.ChatRequest{Message: "plan my trip"})
	var first api.ChatResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))

	rec, env := doJSON(t, h, http.MethodPost, "/v1/chat", api.ChatRequest{
		ConversationID: first.ConversationID,
		Message:        "yes, that's right",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var second api.ChatResponse
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, first.ConversationID, second.ConversationID)
	require.NotNil(t, second.Itinerary)
	assert.Len(t, second.Itinerary.Days, 2)
}

func TestChatUnknownConversation(t *testing.T) {
	h := NewChatHandler(newTestOrchestrator(t), session.NewMemoryStore(), zap.NewNop())

	rec, env := doJSON(t, h, http.MethodPost, "/v1/chat", api.ChatRequest{
		ConversationID: "missing",
		Message:        "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrSessionNotFound), env.Error.Code)
}

func TestChatValidation(t *testing.T) {
	h := NewChatHandler(newTestOrchestrator(t), session.NewMemoryStore(), zap.NewNop())

	tests := []struct {
		name       string
		method     string
		body       string
		wantStatus int
	}{
		{"empty message", http.MethodPost, `{"message":"   "}`, http.StatusBadRequest},
		{"invalid json", http.MethodPost, `{"message":`, http.StatusBadRequest},
		{"message too long", http.MethodPost, `{"message":"` + strings.Repeat("x", 4001) + `"}`, http.StatusBadRequest},
		{"wrong method", http.MethodGet, "", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/v1/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

// presentedConversation drives a session to a presented itinerary and
// returns its identifier.
func presentedConversation(t *testing.T, orch *orchestrator.Orchestrator, store session.Store) string {
	t.Helper()
	ctx := context.Background()
	st := types.NewState("conv-1")
	_, err := orch.RunTurn(ctx, st, "plan my Asheville trip")
	require.NoError(t, err)
	_, err = orch.RunTurn(ctx, st, "yes")
	require.NoError(t, err)
	require.True(t, st.Flags.ItineraryPresented)
	require.NoError(t, store.Save(ctx, st))
	return st.SessionID
}

func TestRefineSelectAccommodation(t *testing.T) {
	store := session.NewMemoryStore()
	orch := newTestOrchestrator(t)
	id := presentedConversation(t, orch, store)
	h := NewRefineHandler(orch, store, zap.NewNop())

	rec, env := doJSON(t, h, http.MethodPost, "/v1/refine", api.RefineRequest{
		ConversationID: id,
		Action:         api.ActionSelectAccommodation,
		Option:         2,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var resp api.RefineResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Contains(t, resp.Message, "Riverside Inn")

	st, err := store.Load(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, st.Flags.HasSelections)
}

func TestRefineWithoutItinerary(t *testing.T) {
	store := session.NewMemoryStore()
	orch := newTestOrchestrator(t)
	require.NoError(t, store.Save(context.Background(), types.NewState("fresh")))
	h := NewRefineHandler(orch, store, zap.NewNop())

	rec, env := doJSON(t, h, http.MethodPost, "/v1/refine", api.RefineRequest{
		ConversationID: "fresh",
		Action:         api.ActionFinalize,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)
}

func TestRefineValidation(t *testing.T) {
	store := session.NewMemoryStore()
	orch := newTestOrchestrator(t)
	id := presentedConversation(t, orch, store)
	h := NewRefineHandler(orch, store, zap.NewNop())

	tests := []struct {
		name string
		req  api.RefineRequest
	}{
		{"missing conversation id", api.RefineRequest{Action: api.ActionFinalize}},
		{"option out of range", api.RefineRequest{ConversationID: id, Action: api.ActionSelectAccommodation, Option: 5}},
		{"swap without reference", api.RefineRequest{ConversationID: id, Action: api.ActionSwapComponent}},
		{"unknown action", api.RefineRequest{ConversationID: id, Action: "teleport"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doJSON(t, h, http.MethodPost, "/v1/refine", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, string(types.ErrInvalidRequest), env.Error.Code)
		})
	}
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealthAllOK(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{"session_store": stubPinger{}}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "ok", resp.Checks["session_store"])
}

func TestHealthDegraded(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"session_store": stubPinger{},
		"archive":       stubPinger{err: errors.New("locked")},
	}, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "unavailable", resp.Checks["archive"])
	assert.Equal(t, "ok", resp.Checks["session_store"])
}

func TestHealthReportsActiveSessions(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), types.NewState("s1")))
	require.NoError(t, store.Save(context.Background(), types.NewState("s2")))

	h := NewHealthHandler(nil, zap.NewNop()).WithSessionCounter(store.Count)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.ActiveSessions)
}

func TestLiveness(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	Liveness(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
