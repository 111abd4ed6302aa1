package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/client"
	"github.com/chatbees/chatbees-go/internal/middleware"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/pkg/logger"
)

// ConversationSource serves stored conversations.
type ConversationSource interface {
	ListConversations(ctx context.Context, source model.CollectionBaseRequest) ([]model.ConversationMeta, error)
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
}

// Archive is a local transcript copy, scoped by tenant.
type Archive interface {
	Load(ctx context.Context, tenantID, conversationID string) (*model.Conversation, error)
}

// ConversationHandler serves conversations stored by the ChatBees service,
// falling back to the caller's archived copy when the service is unreachable
// or failing.
type ConversationHandler struct {
	source  ConversationSource
	archive Archive
	logger  *logger.Logger
}

// NewConversationHandler creates a new conversation handler. archive may be
// nil.
func NewConversationHandler(source ConversationSource, archive Archive, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		source:  source,
		archive: archive,
		logger:  log,
	}
}

// List handles GET /api/v1/conversations?collection=...&application=...
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := model.CollectionBaseRequest{
		CollectionName:  q.Get("collection"),
		ApplicationName: q.Get("application"),
	}
	if (req.CollectionName == "") == (req.ApplicationName == "") {
		writeError(w, http.StatusBadRequest, "exactly one of collection and application is required")
		return
	}
	for kind, name := range map[string]string{"collection": req.CollectionName, "application": req.ApplicationName} {
		if err := middleware.ValidateName(kind, name); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	convs, err := h.source.ListConversations(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if convs == nil {
		convs = []model.ConversationMeta{}
	}

	writeJSON(w, http.StatusOK, &model.ListConversationsResponse{Conversations: convs})
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateName("conversation", conversationID); err != nil || conversationID == "" {
		writeError(w, http.StatusBadRequest, "invalid conversation ID")
		return
	}

	conv, err := h.source.GetConversation(ctx, conversationID)
	if err != nil && h.archive != nil && upstreamUnavailable(err) {
		archived, archiveErr := h.archive.Load(ctx, middleware.GetTenantID(ctx), conversationID)
		if archiveErr == nil {
			h.logger.For(ctx).Info("serving archived conversation",
				zap.String("conversation_id", conversationID),
				zap.NamedError("upstream_error", err),
			)
			conv, err = archived, nil
		} else if !errors.Is(archiveErr, context.Canceled) {
			h.logger.For(ctx).Debug("archive lookup failed",
				zap.String("conversation_id", conversationID),
				zap.Error(archiveErr),
			)
		}
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, &model.GetConversationResponse{Conversation: *conv})
}

// upstreamUnavailable reports whether err is a transport failure or a 5xx
// from the ChatBees service. Answers such as not found or unauthorized are
// returned to the caller as they are.
func upstreamUnavailable(err error) bool {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= http.StatusInternalServerError
	}
	switch {
	case errors.Is(err, client.ErrServerError):
		return true
	case errors.Is(err, context.Canceled),
		errors.Is(err, client.ErrCollectionNotFound),
		errors.Is(err, client.ErrUnauthorized),
		errors.Is(err, client.ErrAPIKeyRequired),
		errors.Is(err, client.ErrLimitExceeded),
		errors.Is(err, client.ErrAPI):
		return false
	}
	return true
}
