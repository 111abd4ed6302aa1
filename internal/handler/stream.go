package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/middleware"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/internal/service"
	"github.com/chatbees/chatbees-go/pkg/logger"
	"github.com/chatbees/chatbees-go/pkg/metrics"
)

const defaultHeartbeat = 30 * time.Second

// StreamHandler handles SSE transcript endpoints.
type StreamHandler struct {
	service   *service.SessionService
	logger    *logger.Logger
	heartbeat time.Duration
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(svc *service.SessionService, log *logger.Logger) *StreamHandler {
	return &StreamHandler{
		service:   svc,
		logger:    log,
		heartbeat: defaultHeartbeat,
	}
}

func startSSE(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	return flusher, true
}

// Stream handles GET /api/v1/sessions/{id}/stream
//
// The transcript is replayed in order, followed by heartbeats until the
// client disconnects. ?after_ts and ?seen resume from the cursor of an
// earlier replay_complete event; see replayFrom.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	q := r.URL.Query()
	var afterTS int64
	if s := q.Get("after_ts"); s != "" {
		ts, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "after_ts must be a unix timestamp")
			return
		}
		afterTS = ts
	}
	seen := -1
	if s := q.Get("seen"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "seen must be a non-negative integer")
			return
		}
		seen = n
	}

	transcript, err := h.service.Messages(ctx, tenantID, sessionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	sendSSEEvent(w, flusher, "connected", map[string]string{
		"session_id":      sessionID,
		"conversation_id": transcript.Meta.ConversationID,
	})

	pending, lastTS, seenAtLast := replayFrom(transcript.Messages, afterTS, seen)
	for _, msg := range pending {
		if ctx.Err() != nil {
			return
		}
		if err := sendSSEEvent(w, flusher, "message", msg); err != nil {
			return
		}
	}

	sendSSEEvent(w, flusher, "replay_complete", &model.ReplayCompleteEvent{
		LastTimestamp: lastTS,
		SeenAtLast:    seenAtLast,
		MessageCount:  len(pending),
	})

	h.logger.For(ctx).Info("transcript replay complete",
		zap.String("session_id", sessionID),
		zap.Int("messages_replayed", len(pending)),
		zap.Int64("last_timestamp", lastTS),
	)

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.For(ctx).Debug("SSE client disconnected", zap.String("session_id", sessionID))
			return
		case <-heartbeat.C:
			if err := sendSSEEvent(w, flusher, "heartbeat", &model.HeartbeatEvent{Timestamp: time.Now()}); err != nil {
				return
			}
		}
	}
}

// StreamAsk handles POST /api/v1/sessions/{id}/stream
//
// It asks a question and streams the two messages it added to the
// transcript.
func (h *StreamHandler) StreamAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID := middleware.GetTenantID(ctx)
	sessionID := chi.URLParam(r, "id")

	if err := middleware.ValidateSessionID(sessionID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if _, err := h.service.Get(ctx, tenantID, sessionID); err != nil {
		writeServiceError(w, err)
		return
	}

	req, err := decodeAsk(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	flusher, ok := startSSE(w)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	resp, err := h.service.Ask(ctx, tenantID, sessionID, req)
	if err != nil {
		_, message := statusFor(err)
		sendSSEEvent(w, flusher, "error", &model.ErrorEvent{
			Code:    "ask_error",
			Message: message,
		})
		return
	}

	transcript, err := h.service.Messages(ctx, tenantID, sessionID)
	if err == nil {
		for _, msg := range exchange(transcript.Messages, resp.RequestID) {
			event := "assistant_message"
			if msg.Role == model.RoleUser {
				event = "user_message"
			}
			sendSSEEvent(w, flusher, event, msg)
		}
	}

	sendSSEEvent(w, flusher, "done", resp)
}

// exchange returns the messages recorded for requestID, or the final two
// messages when the service did not return a request id.
func exchange(msgs []model.Message, requestID string) []model.Message {
	if requestID == "" {
		return msgs[max(0, len(msgs)-2):]
	}
	var out []model.Message
	for _, msg := range msgs {
		if msg.RequestID == requestID {
			out = append(out, msg)
		}
	}
	return out
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	flusher.Flush()

	return nil
}

// replayFrom returns the messages of an ordered transcript after the cursor
// (afterTS, seen): all messages newer than afterTS plus those at afterTS
// beyond the first seen. A negative seen skips every message at afterTS.
// It also returns the cursor for the end of the transcript.
//
// Messages with equal timestamps keep their arrival order, so a message
// arriving in an already replayed second lands after the seen ones. A message
// inserted behind the cursor with an older timestamp is not replayed.
func replayFrom(msgs []model.Message, afterTS int64, seen int) (pending []model.Message, lastTS int64, seenAtLast int) {
	lastTS = afterTS
	atCursor := 0
	for _, msg := range msgs {
		if msg.Timestamp < afterTS {
			continue
		}
		if msg.Timestamp == afterTS {
			atCursor++
			if seen < 0 || atCursor <= seen {
				continue
			}
		}
		pending = append(pending, msg)
		lastTS = msg.Timestamp
	}
	for _, msg := range msgs {
		if msg.Timestamp == lastTS {
			seenAtLast++
		}
	}
	return pending, lastTS, seenAtLast
}
