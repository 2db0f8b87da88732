package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tripflow/tripflow/api"
	"github.com/tripflow/tripflow/engine/orchestrator"
	"github.com/tripflow/tripflow/internal/session"
	"github.com/tripflow/tripflow/types"
)

// maxMessageLength caps a single user message.
const maxMessageLength = 4000

// ChatHandler serves the conversational endpoint.
type ChatHandler struct {
	orch     *orchestrator.Orchestrator
	sessions session.Store
	logger   *zap.Logger
}

// NewChatHandler creates the chat handler.
func NewChatHandler(orch *orchestrator.Orchestrator, sessions session.Store, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		orch:     orch,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "chat_handler")),
	}
}

// ServeHTTP handles POST /v1/chat.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", nil)
		return
	}

	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "invalid JSON body", h.logger)
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "message must not be empty", h.logger)
		return
	}
	if len(req.Message) > maxMessageLength {
		WriteErrorMessage(w, http.StatusBadRequest, types.ErrInvalidRequest, "message too long", h.logger)
		return
	}

	ctx := r.Context()

	var st *types.State
	if req.ConversationID == "" {
		st = types.NewState(uuid.NewString())
	} else {
		loaded, err := h.sessions.Load(ctx, req.ConversationID)
		if err != nil {
			WriteError(w, AsTypedError(err), h.logger)
			return
		}
		st = loaded
	}

	res, err := h.orch.RunTurn(ctx, st, req.Message)
	if err != nil {
		WriteError(w, AsTypedError(err), h.logger)
		return
	}

	if err := h.sessions.Save(ctx, st); err != nil {
		WriteError(w, AsTypedError(err), h.logger)
		return
	}

	WriteSuccess(w, api.ChatResponse{
		ConversationID: st.SessionID,
		Message:        res.Reply,
		Stage:          string(res.Stage),
		Itinerary:      res.Itinerary,
	})
}
