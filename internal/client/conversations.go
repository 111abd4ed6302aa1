package client

import (
	"context"

	"go.uber.org/zap"

	"github.com/chatbees/chatbees-go/internal/model"
)

// ListConversations lists the conversations of a collection or of an
// application. A collection in the client's namespace is used when
// source has no namespace.
func (c *Client) ListConversations(ctx context.Context, source model.CollectionBaseRequest) ([]model.ConversationMeta, error) {
	if source.CollectionName != "" && source.NamespaceName == "" {
		source.NamespaceName = c.namespace
	}

	var resp model.ListConversationsResponse
	req := model.ListConversationsRequest{CollectionBaseRequest: source}
	if err := c.postJSON(ctx, "/conversations/list", req, &resp, true); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// GetConversation fetches a conversation. The returned messages are always in
// timestamp order.
func (c *Client) GetConversation(ctx context.Context, conversationID string) (*model.Conversation, error) {
	var resp model.GetConversationResponse
	req := model.GetConversationRequest{ConversationID: conversationID}
	if err := c.postJSON(ctx, "/conversations/get", req, &resp, true); err != nil {
		return nil, err
	}

	conv := &resp.Conversation
	if conv.Messages == nil {
		conv.Messages = []model.Message{}
	}
	if !conv.IsOrdered() {
		c.logger.Debug("reordering conversation",
			zap.String("conversation_id", conversationID),
			zap.Int("messages", conv.Len()),
		)
		conv = model.Restore(conv.Meta, conv.Messages)
	}
	return conv, nil
}
