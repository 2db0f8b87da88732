package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/tripflow/tripflow/api"
	"github.com/tripflow/tripflow/engine/intent"
	"github.com/tripflow/tripflow/engine/orchestrator"
	"github.com/tripflow/tripflow/internal/session"
	"github.com/tripflow/tripflow/types"
)

// RefineHandler serves direct refinement actions against an existing
// itinerary, bypassing message classification.
type RefineHandler struct {
	orch     *orchestrator.Orchestrator
	sessions session.Store
	logger   *zap.Logger
}

// NewRefineHandler creates the refine handler.
func NewRefineHandler(orch *orchestrator.Orchestrator, sessions session.Store, logger *zap.Logger) *RefineHandler {
	return &RefineHandler{
		orch:     orch,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "refine_handler")),
	}
}

// ServeHTTP handles POST /v1/refine.
func (h *RefineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", nil)
		return
	}

	var req api.RefineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid JSON body", h.logger)
		return
	}
	if req.ConversationID == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "conversation_id is required", h.logger)
		return
	}

	in, terr := toIntent(req)
	if terr != nil {
		WriteError(w, terr, h.logger)
		return
	}

	ctx := r.Context()
	st, err := h.sessions.Load(ctx, req.ConversationID)
	if err != nil {
		WriteError(w, AsTypedError(err), h.logger)
		return
	}

	res, err := h.orch.RunRefinement(ctx, st, in)
	if err != nil {
		WriteError(w, AsTypedError(err), h.logger)
		return
	}

	if err := h.sessions.Save(ctx, st); err != nil {
		WriteError(w, AsTypedError(err), h.logger)
		return
	}

	WriteSuccess(w, api.RefineResponse{
		ConversationID: st.SessionID,
		Message:        res.Reply,
	})
}

func toIntent(req api.RefineRequest) (intent.Intent, *types.Error) {
	switch req.Action {
	case api.ActionSelectAccommodation:
		if req.Option < 1 || req.Option > 3 {
			return intent.Intent{}, types.NewError(types.ErrInvalidRequest, "option must be between 1 and 3")
		}
		return intent.Intent{Kind: intent.KindSelectAccommodation, Index: req.Option - 1}, nil
	case api.ActionBudgetCheapest:
		return intent.Intent{Kind: intent.KindBudgetChange, Request: "cheaper accommodation"}, nil
	case api.ActionSwapComponent:
		if req.Reference == "" {
			return intent.Intent{}, types.NewError(types.ErrInvalidRequest, "reference is required for swap_component")
		}
		return intent.Intent{Kind: intent.KindSwapComponent, Reference: req.Reference, Request: req.Request}, nil
	case api.ActionFinalize:
		return intent.Intent{Kind: intent.KindFinalize}, nil
	default:
		return intent.Intent{}, types.NewError(types.ErrInvalidRequest, "unknown action: "+string(req.Action))
	}
}
