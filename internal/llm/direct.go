package llm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/chatbees/chatbees-go/internal/model"
)

// ErrNoStoredConversations is returned by Direct.GetConversation; a local
// model keeps no conversations of its own.
var ErrNoStoredConversations = errors.New("conversations are not stored by a local model")

// Direct answers questions with an LLM provider, without document retrieval.
// It behaves like a GPT application and satisfies chat.Asker.
type Direct struct {
	client Client
	model  string
	system string
	now    func() time.Time
}

// NewDirect creates a Direct asker. modelName and system may be empty.
func NewDirect(client Client, modelName, system string) *Direct {
	return &Direct{
		client: client,
		model:  modelName,
		system: system,
		now:    time.Now,
	}
}

// Ask answers req.Question with req.HistoryMessages as context.
func (d *Direct) Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error) {
	conv := model.NewConversation(model.ConversationMeta{ConversationID: req.ConversationID})
	ts := d.now().Unix()
	for _, pair := range req.HistoryMessages {
		conv.Append(
			model.Message{Timestamp: ts, Role: model.RoleUser, Content: pair[0]},
			model.Message{Timestamp: ts, Role: model.RoleAssistant, Content: pair[1]},
		)
	}
	conv.Append(model.Message{Timestamp: ts, Role: model.RoleUser, Content: req.Question})

	resp, err := d.client.Complete(ctx, &CompletionRequest{
		Model:    d.model,
		System:   d.system,
		Messages: conv.Messages,
	})
	if err != nil {
		return nil, err
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	return &model.AskResponse{
		Answer:         resp.Content,
		Refs:           []model.AnswerReference{},
		ConversationID: conversationID,
		RequestID:      uuid.New().String(),
	}, nil
}

// AskApplication answers like Ask; the application name is ignored.
func (d *Direct) AskApplication(ctx context.Context, _ string, req model.AskRequest) (*model.AskResponse, error) {
	return d.Ask(ctx, req)
}

// GetConversation always fails with ErrNoStoredConversations.
func (d *Direct) GetConversation(context.Context, string) (*model.Conversation, error) {
	return nil, ErrNoStoredConversations
}

// Retriever is the part of the ChatBees client used by Hybrid.
type Retriever interface {
	Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error)
	GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error)
}

// Hybrid sends collection asks to the ChatBees service and answers
// application asks with a local model.
type Hybrid struct {
	Retriever Retriever
	Local     *Direct
}

// Ask forwards to the retriever.
func (h *Hybrid) Ask(ctx context.Context, req model.AskRequest) (*model.AskResponse, error) {
	return h.Retriever.Ask(ctx, req)
}

// AskApplication answers with the local model.
func (h *Hybrid) AskApplication(ctx context.Context, application string, req model.AskRequest) (*model.AskResponse, error) {
	return h.Local.AskApplication(ctx, application, req)
}

// GetConversation forwards to the retriever.
func (h *Hybrid) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	return h.Retriever.GetConversation(ctx, conversationID)
}
