// Package handler serves the gateway HTTP API.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/chatbees/chatbees-go/internal/chat"
	"github.com/chatbees/chatbees-go/internal/client"
	"github.com/chatbees/chatbees-go/internal/llm"
	"github.com/chatbees/chatbees-go/internal/service"
	"github.com/chatbees/chatbees-go/internal/store"
)

var errInvalidBody = errors.New("invalid request body")

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusFor maps an error from the services or the ChatBees client to an
// HTTP status and a message safe to return to callers.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidSession), errors.Is(err, chat.ErrInvalidTarget),
		errors.Is(err, client.ErrInvalidFeedback), errors.Is(err, client.ErrInvalidApplication):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, client.ErrCollectionNotFound):
		return http.StatusNotFound, "collection not found"
	case errors.Is(err, client.ErrCollectionAlreadyExists):
		return http.StatusConflict, "collection already exists"
	case errors.Is(err, client.ErrLimitExceeded):
		return http.StatusTooManyRequests, "usage limit exceeded"
	case errors.Is(err, client.ErrUnimplemented), errors.Is(err, llm.ErrNoStoredConversations):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, client.ErrAPIKeyRequired), errors.Is(err, client.ErrUnauthorized):
		return http.StatusBadGateway, "upstream rejected credentials"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "upstream timed out"
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, "upstream error"
	}
	return http.StatusInternalServerError, "internal error"
}

// writeServiceError writes the response for err.
func writeServiceError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	writeError(w, status, message)
}
