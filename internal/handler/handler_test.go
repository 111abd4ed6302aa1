package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/chatbees/chatbees-go/internal/client"
	"github.com/chatbees/chatbees-go/internal/middleware"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/internal/service"
	"github.com/chatbees/chatbees-go/internal/store"
	"github.com/chatbees/chatbees-go/pkg/logger"
)

type fakeBackend struct {
	calls     atomic.Int32
	askErr    error
	names     []string
	feedback  []model.CreateOrUpdateFeedbackRequest
	convs     map[string]*model.Conversation
	upstream  error
	lastQuery model.CollectionBaseRequest
}

func (b *fakeBackend) Ask(_ context.Context, req model.AskRequest) (*model.AskResponse, error) {
	if b.askErr != nil {
		return nil, b.askErr
	}
	n := b.calls.Add(1)
	return &model.AskResponse{
		Answer:         "answer to " + req.Question,
		ConversationID: "conv-1",
		RequestID:      fmt.Sprintf("req-%d", n),
	}, nil
}

func (b *fakeBackend) AskApplication(ctx context.Context, _ string, req model.AskRequest) (*model.AskResponse, error) {
	return b.Ask(ctx, req)
}

func (b *fakeBackend) GetConversation(_ context.Context, id string) (*model.Conversation, error) {
	if b.upstream != nil {
		return nil, b.upstream
	}
	conv, ok := b.convs[id]
	if !ok {
		return nil, &client.APIError{StatusCode: http.StatusNotFound, Reason: "missing"}
	}
	return conv, nil
}

func (b *fakeBackend) ListConversations(_ context.Context, source model.CollectionBaseRequest) ([]model.ConversationMeta, error) {
	b.lastQuery = source
	if b.upstream != nil {
		return nil, b.upstream
	}
	return []model.ConversationMeta{{ConversationID: "conv-1", Title: "hello"}}, nil
}

func (b *fakeBackend) ListCollections(context.Context) ([]string, error) {
	if b.upstream != nil {
		return nil, b.upstream
	}
	return b.names, nil
}

func (b *fakeBackend) CreateOrUpdateFeedback(_ context.Context, req model.CreateOrUpdateFeedbackRequest) error {
	b.feedback = append(b.feedback, req)
	return nil
}

// fakeArchive is keyed by tenant and conversation id joined with "/".
type fakeArchive map[string]*model.Conversation

func (a fakeArchive) Load(_ context.Context, tenantID, id string) (*model.Conversation, error) {
	if conv, ok := a[tenantID+"/"+id]; ok {
		return conv, nil
	}
	return nil, store.ErrNotFound
}

// as attaches a principal from the X-Test-Tenant header.
func as(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := middleware.Principal{TenantID: r.Header.Get("X-Test-Tenant"), UserID: "user-1"}
		next.ServeHTTP(w, r.WithContext(middleware.WithPrincipal(r.Context(), p)))
	})
}

func newRouter(t *testing.T, backend *fakeBackend, archive Archive) (http.Handler, *StreamHandler) {
	t.Helper()
	log := logger.NewNop()
	svc := service.NewSessionService(backend, "public", nil, nil, log)
	t.Cleanup(svc.Close)

	sessions := NewSessionHandler(svc, log)
	messages := NewMessageHandler(svc, log)
	stream := NewStreamHandler(svc, log)
	stream.heartbeat = 10 * time.Millisecond
	collections := NewCollectionHandler(backend, log)
	conversations := NewConversationHandler(backend, archive, log)

	r := chi.NewRouter()
	r.Use(as)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", sessions.Create)
		r.Get("/", sessions.List)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", sessions.Get)
			r.Delete("/", sessions.Delete)
			r.Post("/ask", messages.Ask)
			r.Get("/messages", messages.List)
			r.Get("/stream", stream.Stream)
			r.Post("/stream", stream.StreamAsk)
		})
	})
	r.Get("/collections", collections.List)
	r.Post("/feedback", collections.Feedback)
	r.Get("/conversations", conversations.List)
	r.Get("/conversations/{id}", conversations.Get)
	return r, stream
}

func do(t *testing.T, h http.Handler, method, path, tenant, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-Test-Tenant", tenant)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler, tenant string) model.Session {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/sessions", tenant, `{"collection_name":"docs"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess model.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess
}

func TestSessionLifecycle(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)

	sess := createSession(t, h, "acme")
	require.Equal(t, "docs", sess.CollectionName)

	rec := do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"what is a bee?"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var answer model.AskSessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	require.Equal(t, "answer to what is a bee?", answer.Answer)
	require.Equal(t, "conv-1", answer.ConversationID)
	require.NotNil(t, answer.Refs)

	rec = do(t, h, http.MethodGet, "/sessions/"+sess.ID+"/messages", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var transcript model.ListMessagesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &transcript))
	require.Len(t, transcript.Messages, 2)
	require.Equal(t, model.RoleUser, transcript.Messages[0].Role)
	require.Equal(t, model.RoleAssistant, transcript.Messages[1].Role)

	rec = do(t, h, http.MethodGet, "/sessions", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list model.ListSessionsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	require.Equal(t, 2, list.Sessions[0].MessageCount)

	rec = do(t, h, http.MethodDelete, "/sessions/"+sess.ID, "acme", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodGet, "/sessions/"+sess.ID, "acme", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionValidation(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)

	rec := do(t, h, http.MethodPost, "/sessions", "acme", `{}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/sessions", "acme", `not json`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/sessions/not-a-uuid", "acme", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	sess := createSession(t, h, "acme")
	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"   "}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"hi","top_k":1000}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionsAreTenantScoped(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)
	sess := createSession(t, h, "acme")

	rec := do(t, h, http.MethodGet, "/sessions/"+sess.ID, "globex", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "globex", `{"question":"hi"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskUpstreamErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing collection", fmt.Errorf("ask: %w", client.ErrCollectionNotFound), http.StatusNotFound},
		{"limit", client.ErrLimitExceeded, http.StatusTooManyRequests},
		{"bad credentials", client.ErrAPIKeyRequired, http.StatusBadGateway},
		{"other upstream", &client.APIError{StatusCode: 418, Reason: "teapot"}, http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newRouter(t, &fakeBackend{askErr: tt.err}, nil)
			sess := createSession(t, h, "acme")

			rec := do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"hi"}`)
			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestStatusForUnwrapsAPIError(t *testing.T) {
	// A response error without a known kind is reported as an upstream error.
	status, _ := statusFor(&client.APIError{StatusCode: 404})
	require.Equal(t, http.StatusBadGateway, status)

	status, _ = statusFor(fmt.Errorf("wrapped: %w", service.ErrSessionNotFound))
	require.Equal(t, http.StatusNotFound, status)
}

func TestStreamReplaysAfterTimestamp(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)
	sess := createSession(t, h, "acme")

	rec := do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"first"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID+"/stream", nil).WithContext(ctx)
	req.Header.Set("X-Test-Tenant", "acme")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	body := rec.Body.String()
	require.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	require.Contains(t, body, "event: connected")
	require.Equal(t, 2, strings.Count(body, "event: message\n"))
	require.Contains(t, body, `"message_count":2`)
	require.Contains(t, body, "event: heartbeat")
	require.Less(t, strings.Index(body, `"role":"user"`), strings.Index(body, `"role":"assistant"`))

	// Everything is older than a timestamp far in the future.
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	future := time.Now().Add(time.Hour).Unix()
	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/sessions/%s/stream?after_ts=%d", sess.ID, future), nil).WithContext(ctx2)
	req.Header.Set("X-Test-Tenant", "acme")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.NotContains(t, rec.Body.String(), "event: message\n")
	require.Contains(t, rec.Body.String(), `"message_count":0`)
}

func TestReplayFromSameSecond(t *testing.T) {
	msgs := []model.Message{
		{Timestamp: 10, RequestID: "r1", Role: model.RoleUser, Content: "q1"},
		{Timestamp: 10, RequestID: "r1", Role: model.RoleAssistant, Content: "a1"},
		{Timestamp: 10, RequestID: "r2", Role: model.RoleUser, Content: "q2"},
		{Timestamp: 11, RequestID: "r2", Role: model.RoleAssistant, Content: "a2"},
	}
	contents := func(ms []model.Message) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.Content)
		}
		return out
	}

	pending, last, seen := replayFrom(msgs, 0, -1)
	require.Equal(t, []string{"q1", "a1", "q2", "a2"}, contents(pending))
	require.Equal(t, int64(11), last)
	require.Equal(t, 1, seen)

	// Two of the three messages in second 10 were already delivered.
	pending, last, seen = replayFrom(msgs, 10, 2)
	require.Equal(t, []string{"q2", "a2"}, contents(pending))
	require.Equal(t, int64(11), last)
	require.Equal(t, 1, seen)

	// Without a count every message of the cursor second is skipped.
	pending, _, _ = replayFrom(msgs, 10, -1)
	require.Equal(t, []string{"a2"}, contents(pending))

	pending, last, seen = replayFrom(msgs[:3], 10, 3)
	require.Empty(t, pending)
	require.Equal(t, int64(10), last)
	require.Equal(t, 3, seen)
}

func replayCursor(t *testing.T, body string) model.ReplayCompleteEvent {
	t.Helper()
	_, rest, ok := strings.Cut(body, "event: replay_complete\ndata: ")
	require.True(t, ok, body)
	line, _, _ := strings.Cut(rest, "\n")
	var ev model.ReplayCompleteEvent
	require.NoError(t, json.Unmarshal([]byte(line), &ev))
	return ev
}

func TestStreamResumesFromCursor(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)
	sess := createSession(t, h, "acme")

	stream := func(query string) string {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/sessions/"+sess.ID+"/stream"+query, nil).WithContext(ctx)
		req.Header.Set("X-Test-Tenant", "acme")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Body.String()
	}

	rec := do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"first"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cursor := replayCursor(t, stream(""))
	require.Equal(t, 2, cursor.MessageCount)
	require.Positive(t, cursor.SeenAtLast)

	// The second exchange usually lands in the same second as the first.
	rec = do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/ask", "acme", `{"question":"second"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	body := stream(fmt.Sprintf("?after_ts=%d&seen=%d", cursor.LastTimestamp, cursor.SeenAtLast))
	require.Equal(t, 2, strings.Count(body, "event: message\n"))
	require.Contains(t, body, "answer to second")
	require.NotContains(t, body, "answer to first")
	require.Equal(t, 2, replayCursor(t, body).MessageCount)

	rec = do(t, h, http.MethodGet, "/sessions/"+sess.ID+"/stream?seen=-1", "acme", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamRejectsBadTimestamp(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)
	sess := createSession(t, h, "acme")

	rec := do(t, h, http.MethodGet, "/sessions/"+sess.ID+"/stream?after_ts=yesterday", "acme", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamAsk(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{}, nil)
	sess := createSession(t, h, "acme")

	rec := do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/stream", "acme", `{"question":"hello"}`)
	body := rec.Body.String()
	require.Contains(t, body, "event: user_message")
	require.Contains(t, body, "event: assistant_message")
	require.Contains(t, body, "event: done")
	require.Less(t, strings.Index(body, "event: user_message"), strings.Index(body, "event: assistant_message"))
}

func TestStreamAskError(t *testing.T) {
	h, _ := newRouter(t, &fakeBackend{askErr: errors.New("boom")}, nil)
	sess := createSession(t, h, "acme")

	rec := do(t, h, http.MethodPost, "/sessions/"+sess.ID+"/stream", "acme", `{"question":"hello"}`)
	require.Contains(t, rec.Body.String(), "event: error")
	require.NotContains(t, rec.Body.String(), "event: done")
}

func TestExchange(t *testing.T) {
	msgs := []model.Message{
		{Timestamp: 1, RequestID: "a", Role: model.RoleUser},
		{Timestamp: 2, RequestID: "a", Role: model.RoleAssistant},
		{Timestamp: 3, RequestID: "b", Role: model.RoleUser},
		{Timestamp: 4, RequestID: "b", Role: model.RoleAssistant},
	}
	require.Equal(t, msgs[:2], exchange(msgs, "a"))
	require.Equal(t, msgs[2:], exchange(msgs, ""))
	require.Len(t, exchange(msgs[:1], ""), 1)
}

func TestCollectionsAndFeedback(t *testing.T) {
	backend := &fakeBackend{names: []string{"docs", "faq"}}
	h, _ := newRouter(t, backend, nil)

	rec := do(t, h, http.MethodGet, "/collections", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"names":["docs","faq"]}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/feedback", "acme", `{"collection_name":"docs","request_id":"req-1","thumb_down":true}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Len(t, backend.feedback, 1)
	require.True(t, backend.feedback[0].ThumbDown)

	rec = do(t, h, http.MethodPost, "/feedback", "acme", `{"collection_name":"docs"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Len(t, backend.feedback, 1)
}

func TestConversationArchiveFallback(t *testing.T) {
	archived := model.Restore(model.ConversationMeta{ConversationID: "old"}, []model.Message{
		{Timestamp: 5, Role: model.RoleUser, Content: "q"},
		{Timestamp: 6, Role: model.RoleAssistant, Content: "a"},
	})
	backend := &fakeBackend{upstream: fmt.Errorf("dial: %w", context.DeadlineExceeded)}
	h, _ := newRouter(t, backend, fakeArchive{"acme/old": archived})

	rec := do(t, h, http.MethodGet, "/conversations/old", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp model.GetConversationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Conversation.Messages, 2)

	rec = do(t, h, http.MethodGet, "/conversations/missing", "acme", "")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)

	backend.upstream = &client.APIError{StatusCode: http.StatusBadGateway, Reason: "bad gateway"}
	rec = do(t, h, http.MethodGet, "/conversations/old", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestConversationArchiveIsTenantScoped(t *testing.T) {
	archived := model.Restore(model.ConversationMeta{ConversationID: "old"}, []model.Message{
		{Timestamp: 5, Role: model.RoleUser, Content: "acme only"},
	})
	backend := &fakeBackend{upstream: fmt.Errorf("dial: %w", context.DeadlineExceeded)}
	h, _ := newRouter(t, backend, fakeArchive{"acme/old": archived})

	rec := do(t, h, http.MethodGet, "/conversations/old", "globex", "")
	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	require.NotContains(t, rec.Body.String(), "acme only")
}

func TestConversationArchiveSkippedOnUpstreamAnswer(t *testing.T) {
	archived := model.Restore(model.ConversationMeta{ConversationID: "old"}, []model.Message{
		{Timestamp: 5, Role: model.RoleUser, Content: "q"},
	})
	backend := &fakeBackend{}
	h, _ := newRouter(t, backend, fakeArchive{"acme/old": archived})

	// The service answers 404: the archive is not consulted.
	backend.upstream = &client.APIError{StatusCode: http.StatusNotFound, Reason: "missing"}
	rec := do(t, h, http.MethodGet, "/conversations/old", "acme", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	backend.upstream = fmt.Errorf("get conversation: %w", client.ErrUnauthorized)
	rec = do(t, h, http.MethodGet, "/conversations/old", "acme", "")
	require.Equal(t, http.StatusBadGateway, rec.Code)

	backend.upstream = fmt.Errorf("get conversation: %w", client.ErrCollectionNotFound)
	rec = do(t, h, http.MethodGet, "/conversations/old", "acme", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpstreamUnavailable(t *testing.T) {
	require.True(t, upstreamUnavailable(errors.New("connection refused")))
	require.True(t, upstreamUnavailable(fmt.Errorf("dial: %w", context.DeadlineExceeded)))
	require.True(t, upstreamUnavailable(&client.APIError{StatusCode: http.StatusServiceUnavailable}))
	require.True(t, upstreamUnavailable(fmt.Errorf("ask: %w", client.ErrServerError)))

	require.False(t, upstreamUnavailable(&client.APIError{StatusCode: http.StatusNotFound}))
	require.False(t, upstreamUnavailable(fmt.Errorf("x: %w", client.ErrCollectionNotFound)))
	require.False(t, upstreamUnavailable(fmt.Errorf("x: %w", client.ErrUnauthorized)))
	require.False(t, upstreamUnavailable(context.Canceled))
}

func TestListConversations(t *testing.T) {
	backend := &fakeBackend{}
	h, _ := newRouter(t, backend, nil)

	rec := do(t, h, http.MethodGet, "/conversations?collection=docs", "acme", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "docs", backend.lastQuery.CollectionName)
	require.Contains(t, rec.Body.String(), `"conversation_id":"conv-1"`)

	rec = do(t, h, http.MethodGet, "/conversations", "acme", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/conversations?collection=a&application=b", "acme", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReady(t *testing.T) {
	ok := NewHealthHandler(map[string]Check{"store": func(context.Context) error { return nil }})
	rec := httptest.NewRecorder()
	ok.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	down := NewHealthHandler(map[string]Check{"nats": func(context.Context) error { return errors.New("not connected") }})
	rec = httptest.NewRecorder()
	down.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "nats: not connected")
}
