package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/client"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/pkg/logger"
)

// Catalog is the part of the ChatBees client behind the collection and
// feedback endpoints.
type Catalog interface {
	ListCollections(ctx context.Context) ([]string, error)
	CreateOrUpdateFeedback(ctx context.Context, req model.CreateOrUpdateFeedbackRequest) error
}

// CollectionHandler handles collection and feedback endpoints.
type CollectionHandler struct {
	catalog Catalog
	logger  *logger.Logger
}

// NewCollectionHandler creates a new collection handler.
func NewCollectionHandler(catalog Catalog, log *logger.Logger) *CollectionHandler {
	return &CollectionHandler{
		catalog: catalog,
		logger:  log,
	}
}

// List handles GET /api/v1/collections
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	names, err := h.catalog.ListCollections(r.Context())
	if err != nil {
		h.logger.For(r.Context()).Warn("failed to list collections", zap.Error(err))
		writeServiceError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, &model.ListCollectionsResponse{Names: names})
}

// Feedback handles POST /api/v1/feedback
func (h *CollectionHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrUpdateFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := client.ValidateFeedback(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.catalog.CreateOrUpdateFeedback(r.Context(), req); err != nil {
		h.logger.For(r.Context()).Warn("failed to record feedback",
			zap.String("request_id", req.RequestID),
			zap.Error(err),
		)
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
