// Package chat keeps a conversation with a collection or an application.
//
// A Chat sends each question together with the earlier question/answer pairs
// and records both sides of the exchange in an ordered conversation log.
package chat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/model"
	"github.com/chatbees/chatbees-go/pkg/logger"
	"github.com/chatbees/chatbees-go/pkg/metrics"
)

// ErrInvalidTarget is returned when a target names neither or both of a
// collection and an application.
var ErrInvalidTarget = errors.New("chat target must name a collection or an application")

// Asker answers questions. *client.Client implements it.
type Asker interface {
	Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error)
	AskApplication(ctx context.Context, application string, req model.AskRequest) (*model.AskResponse, error)
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
}

// Sink receives messages after they are appended to a conversation.
type Sink interface {
	Record(ctx context.Context, meta model.ConversationMeta, msgs ...model.Message) error
}

// Target is what a chat talks to: a collection, optionally scoped to one
// document, or an application.
type Target struct {
	Namespace   string
	Collection  string
	Application string
	DocName     string
}

// Validate checks that exactly one of Collection and Application is set.
func (t Target) Validate() error {
	if (t.Collection == "") == (t.Application == "") {
		return ErrInvalidTarget
	}
	return nil
}

// SourceID identifies the target in conversation metadata.
func (t Target) SourceID() string {
	if t.Application != "" {
		return t.Application
	}
	id := t.Collection
	if t.Namespace != "" {
		id = t.Namespace + "/" + id
	}
	if t.DocName != "" {
		id += "/" + t.DocName
	}
	return id
}

// Option configures a Chat.
type Option func(*Chat)

// WithSink mirrors appended messages to s.
func WithSink(s Sink) Option {
	return func(c *Chat) { c.sink = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Chat) { c.logger = l }
}

// WithClock replaces the clock used to stamp messages.
func WithClock(now func() time.Time) Option {
	return func(c *Chat) { c.now = now }
}

// Chat is a conversation in progress. It is not safe for concurrent use.
type Chat struct {
	asker  Asker
	target Target
	conv   *model.Conversation
	sink   Sink
	logger *logger.Logger
	now    func() time.Time
}

// New starts a new conversation with target.
func New(asker Asker, target Target, opts ...Option) (*Chat, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	conv := model.NewConversation(model.ConversationMeta{SourceID: target.SourceID()})
	return newChat(asker, target, conv, opts), nil
}

// Resume continues an existing conversation.
func Resume(ctx context.Context, asker Asker, target Target, conversationID string, opts ...Option) (*Chat, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	conv, err := asker.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	if conv.Meta.ConversationID == "" {
		conv.Meta.ConversationID = conversationID
	}
	return newChat(asker, target, conv, opts), nil
}

func newChat(asker Asker, target Target, conv *model.Conversation, opts []Option) *Chat {
	c := &Chat{
		asker:  asker,
		target: target,
		conv:   conv,
		logger: logger.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("source_id", target.SourceID()))
	return c
}

// ConversationID returns the id assigned by the service, or "" before the
// first answer.
func (c *Chat) ConversationID() string {
	return c.conv.Meta.ConversationID
}

// Target returns what the chat talks to.
func (c *Chat) Target() Target {
	return c.target
}

// Ask sends question with the conversation so far and records the exchange.
func (c *Chat) Ask(ctx context.Context, question string, topK int) (*model.AskResponse, error) {
	req := model.AskRequest{
		CollectionBaseRequest: model.CollectionBaseRequest{
			NamespaceName:  c.target.Namespace,
			CollectionName: c.target.Collection,
		},
		Question:        question,
		TopK:            topK,
		DocName:         c.target.DocName,
		HistoryMessages: c.conv.HistoryPairs(),
		ConversationID:  c.conv.Meta.ConversationID,
	}

	askedAt := c.now().Unix()

	var (
		resp *model.AskResponse
		err  error
	)
	if c.target.Application != "" {
		resp, err = c.asker.AskApplication(ctx, c.target.Application, req)
	} else {
		resp, err = c.asker.Ask(ctx, req)
	}
	if err != nil {
		return nil, err
	}

	if c.conv.Meta.ConversationID == "" {
		c.conv.Meta.ConversationID = resp.ConversationID
	}
	if c.conv.Meta.StartTS == 0 {
		c.conv.Meta.StartTS = askedAt
	}
	if c.conv.Meta.Title == "" {
		c.conv.Meta.Title = question
	}

	// Storage and the event stream key messages on the request id.
	if resp.RequestID == "" {
		resp.RequestID = uuid.New().String()
	}

	msgs := []model.Message{
		{Timestamp: askedAt, RequestID: resp.RequestID, Role: model.RoleUser, Content: question},
		{Timestamp: c.now().Unix(), RequestID: resp.RequestID, Role: model.RoleAssistant, Content: resp.Answer},
	}
	c.conv.Append(msgs...)
	for _, msg := range msgs {
		metrics.RecordAppend(string(msg.Role))
	}

	if c.sink != nil {
		if err := c.sink.Record(ctx, c.conv.Meta, msgs...); err != nil {
			c.logger.Warn("failed to record transcript",
				zap.String("conversation_id", c.conv.Meta.ConversationID),
				zap.String("request_id", resp.RequestID),
				zap.Error(err),
			)
		}
	}

	return resp, nil
}

// Transcript returns a copy of the ordered conversation log.
func (c *Chat) Transcript() *model.Conversation {
	return c.conv.Clone()
}

// History returns the question/answer pairs of the conversation.
func (c *Chat) History() [][2]string {
	return c.conv.HistoryPairs()
}

type multiSink []Sink

// MultiSink records to every non-nil sink in order. Errors of all sinks are
// joined.
func MultiSink(sinks ...Sink) Sink {
	var ms multiSink
	for _, s := range sinks {
		if s != nil {
			ms = append(ms, s)
		}
	}
	return ms
}

func (ms multiSink) Record(ctx context.Context, meta model.ConversationMeta, msgs ...model.Message) error {
	var errs []error
	for _, s := range ms {
		if err := s.Record(ctx, meta, msgs...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
