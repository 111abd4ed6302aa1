// Package service holds the chat sessions served by the gateway.
package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/chat"
	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/pkg/logger"
	"github.com/chatbees/chatbees-go/pkg/metrics"
)

var (
	// ErrSessionNotFound is returned for unknown sessions and for sessions
	// of another tenant.
	ErrSessionNotFound = errors.New("session not found")

	// ErrInvalidSession is returned when a session request names neither or
	// both of a collection and an application.
	ErrInvalidSession = errors.New("session must target a collection or an application")
)

// EventPublisher receives session events.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *model.SessionEvent) (uint64, error)
}

// session is a chat and its metadata. mu serializes asks so appends to the
// conversation log never interleave.
type session struct {
	mu   sync.Mutex
	info model.Session
	chat *chat.Chat
}

// SessionService manages chat sessions.
type SessionService struct {
	asker     chat.Asker
	sink      chat.Sink
	events    EventPublisher
	namespace string
	logger    *logger.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

// NewSessionService creates a new session service. sink and events may be nil.
func NewSessionService(asker chat.Asker, namespace string, sink chat.Sink, events EventPublisher, log *logger.Logger) *SessionService {
	return &SessionService{
		asker:     asker,
		sink:      sink,
		events:    events,
		namespace: namespace,
		logger:    log,
		sessions:  make(map[string]*session),
	}
}

// Create opens a chat session. A request with a conversation id resumes
// that conversation.
func (s *SessionService) Create(ctx context.Context, tenantID, userID string, req *model.CreateSessionRequest) (*model.Session, error) {
	target := chat.Target{
		Collection:  req.CollectionName,
		Application: req.ApplicationName,
		DocName:     req.DocName,
	}
	if target.Collection != "" {
		target.Namespace = s.namespace
	}
	if err := target.Validate(); err != nil {
		return nil, ErrInvalidSession
	}

	opts := []chat.Option{chat.WithLogger(s.logger)}
	if s.sink != nil {
		opts = append(opts, chat.WithSink(s.sink))
	}

	var (
		c   *chat.Chat
		err error
	)
	if req.ConversationID != "" {
		c, err = chat.Resume(ctx, s.asker, target, req.ConversationID, opts...)
	} else {
		c, err = chat.New(s.asker, target, opts...)
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &session{
		info: model.Session{
			ID:              uuid.Must(uuid.NewV7()).String(),
			TenantID:        tenantID,
			UserID:          userID,
			CollectionName:  req.CollectionName,
			ApplicationName: req.ApplicationName,
			DocName:         req.DocName,
			ConversationID:  c.ConversationID(),
			CreatedAt:       now,
			UpdatedAt:       now,
			MessageCount:    c.Transcript().Len(),
		},
		chat: c,
	}

	s.mu.Lock()
	s.sessions[sess.info.ID] = sess
	s.mu.Unlock()

	metrics.IncrementSessions()
	s.publish(ctx, sess.info, target.SourceID(), model.EventTypeCreated, "")

	s.logger.Info("session created",
		zap.String("session_id", sess.info.ID),
		zap.String("tenant_id", tenantID),
		zap.String("source_id", target.SourceID()),
	)

	info := sess.info
	return &info, nil
}

// lookup returns the session if it belongs to tenantID.
func (s *SessionService) lookup(tenantID, sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	// info.TenantID never changes after creation.
	if sess.info.TenantID != tenantID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Get retrieves a session by ID.
func (s *SessionService) Get(ctx context.Context, tenantID, sessionID string) (*model.Session, error) {
	sess, err := s.lookup(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	info := sess.info
	sess.mu.Unlock()
	return &info, nil
}

// List returns the sessions of a tenant, oldest first.
func (s *SessionService) List(ctx context.Context, tenantID string) (*model.ListSessionsResponse, error) {
	s.mu.RLock()
	var owned []*session
	for _, sess := range s.sessions {
		if sess.info.TenantID == tenantID {
			owned = append(owned, sess)
		}
	}
	s.mu.RUnlock()

	infos := make([]model.Session, 0, len(owned))
	for _, sess := range owned {
		sess.mu.Lock()
		infos = append(infos, sess.info)
		sess.mu.Unlock()
	}
	slices.SortFunc(infos, func(a, b model.Session) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	return &model.ListSessionsResponse{
		Sessions: infos,
		Total:    len(infos),
	}, nil
}

// Delete closes a session. The conversation itself is kept by the service.
func (s *SessionService) Delete(ctx context.Context, tenantID, sessionID string) error {
	sess, err := s.lookup(tenantID, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	_, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	metrics.DecrementSessions()

	sess.mu.Lock()
	info := sess.info
	sess.mu.Unlock()
	s.publish(ctx, info, sess.chat.Target().SourceID(), model.EventTypeClosed, "")
	return nil
}

// publish sends a session event if a publisher is configured. Failures are
// logged only.
func (s *SessionService) publish(ctx context.Context, info model.Session, sourceID string, typ model.EventType, reason string) {
	if s.events == nil {
		return
	}
	event := &model.SessionEvent{
		ID:             uuid.Must(uuid.NewV7()).String(),
		SessionID:      info.ID,
		ConversationID: info.ConversationID,
		SourceID:       sourceID,
		Type:           typ,
		Reason:         reason,
		CreatedAt:      time.Now(),
	}
	if _, err := s.events.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish session event",
			zap.String("session_id", info.ID),
			zap.String("type", string(typ)),
			zap.Error(err),
		)
	}
}

// Close releases every session.
func (s *SessionService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.sessions {
		metrics.DecrementSessions()
		delete(s.sessions, id)
	}
}
