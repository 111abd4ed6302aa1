package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/model"
)

// Ask asks a question within a session. Asks on one session run one at a
// time; asks on different sessions run concurrently.
func (s *SessionService) Ask(ctx context.Context, tenantID, sessionID string, req *model.AskSessionRequest) (*model.AskSessionResponse, error) {
	sess, err := s.lookup(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	// Sinks archive the exchange under the session's tenant.
	ctx = model.WithTenant(ctx, sess.info.TenantID)
	resp, err := sess.chat.Ask(ctx, strings.TrimSpace(req.Question), req.TopK)
	if err != nil {
		s.logger.Warn("ask failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		s.publish(ctx, sess.info, sess.chat.Target().SourceID(), model.EventTypeError, err.Error())
		return nil, err
	}

	sess.info.ConversationID = sess.chat.ConversationID()
	sess.info.MessageCount = sess.chat.Transcript().Len()
	sess.info.UpdatedAt = time.Now()

	refs := resp.Refs
	if refs == nil {
		refs = []model.AnswerReference{}
	}
	return &model.AskSessionResponse{
		Answer:         resp.Answer,
		Refs:           refs,
		RequestID:      resp.RequestID,
		ConversationID: sess.info.ConversationID,
	}, nil
}

// Messages returns the ordered transcript of a session.
func (s *SessionService) Messages(ctx context.Context, tenantID, sessionID string) (*model.ListMessagesResponse, error) {
	sess, err := s.lookup(tenantID, sessionID)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	tr := sess.chat.Transcript()
	sess.mu.Unlock()

	return &model.ListMessagesResponse{
		Meta:     tr.Meta,
		Messages: tr.Messages,
	}, nil
}
