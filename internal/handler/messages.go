package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/middleware"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/internal/service"
	"github.com/chatbees/chatbees-go/pkg/logger"
)

// MessageHandler handles asks and transcripts within a session.
type MessageHandler struct {
	service *service.SessionService
	logger  *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(svc *service.SessionService, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		service: svc,
		logger:  log,
	}
}

// decodeAsk reads and validates an ask request body.
func decodeAsk(r *http.Request) (*model.AskSessionRequest, error) {
	var req model.AskSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, errInvalidBody
	}
	if err := middleware.ValidateQuestion(req.Question); err != nil {
		return nil, err
	}
	if err := middleware.ValidateTopK(req.TopK); err != nil {
		return nil, err
	}
	return &req, nil
}

// Ask handles POST /api/v1/sessions/{id}/ask
func (h *MessageHandler) Ask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req, err := decodeAsk(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Ask(ctx, tenantID, sessionID, req)
	if err != nil {
		h.logger.For(ctx).Warn("ask failed", zap.String("session_id", sessionID), zap.Error(err))
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// List handles GET /api/v1/sessions/{id}/messages
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.Messages(ctx, middleware.GetTenantID(ctx), sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}
