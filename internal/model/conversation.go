// Package model defines the data structures exchanged with the ChatBees service.
package model

import (
	"slices"
)

// ConversationMeta describes a conversation without its messages.
type ConversationMeta struct {
	ConversationID string `json:"conversation_id" yaml:"conversation_id"`
	Title          string `json:"title" yaml:"title"`
	StartTS        int64  `json:"start_ts" yaml:"start_ts"`

	// SourceID identifies where the conversation started, e.g. a collection
	// id, an application id or "clid/doc_id".
	SourceID string `json:"source_id" yaml:"source_id"`
}

// Conversation is the ordered transcript of a single chat session.
//
// Messages are kept in non-decreasing timestamp order. A Conversation is not
// safe for concurrent use; callers serialize calls to Append.
type Conversation struct {
	Meta     ConversationMeta `json:"meta" yaml:"meta"`
	Messages []Message        `json:"messages" yaml:"messages"`
}

// NewConversation creates an empty conversation log.
func NewConversation(meta ConversationMeta) *Conversation {
	return &Conversation{
		Meta:     meta,
		Messages: []Message{},
	}
}

// Append inserts msgs into the log in chronological order.
//
// Each message is placed by scanning backward from the end while the
// predecessor has a strictly greater timestamp, so a message lands after any
// existing message with the same timestamp. Messages within msgs are expected
// to be ordered relative to each other.
func (c *Conversation) Append(msgs ...Message) {
	for _, msg := range msgs {
		i := len(c.Messages)
		for i > 0 && c.Messages[i-1].Timestamp > msg.Timestamp {
			i--
		}
		c.Messages = slices.Insert(c.Messages, i, msg)
	}
}

// Len returns the number of messages in the log.
func (c *Conversation) Len() int {
	return len(c.Messages)
}

// LastTimestamp returns the timestamp of the newest message, or 0 for an
// empty log.
func (c *Conversation) LastTimestamp() int64 {
	if len(c.Messages) == 0 {
		return 0
	}
	return c.Messages[len(c.Messages)-1].Timestamp
}

// IsOrdered reports whether the messages are in non-decreasing timestamp order.
func (c *Conversation) IsOrdered() bool {
	return slices.IsSortedFunc(c.Messages, func(a, b Message) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		}
		return 0
	})
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	return &Conversation{
		Meta:     c.Meta,
		Messages: slices.Clone(c.Messages),
	}
}

// HistoryPairs rebuilds question/answer pairs from the transcript. A pair is a
// user message followed by the next assistant message; unanswered questions
// and messages with other roles are skipped.
func (c *Conversation) HistoryPairs() [][2]string {
	var pairs [][2]string
	var question *Message
	for i := range c.Messages {
		msg := &c.Messages[i]
		switch msg.Role {
		case RoleUser:
			question = msg
		case RoleAssistant:
			if question != nil {
				pairs = append(pairs, [2]string{question.Content, msg.Content})
				question = nil
			}
		}
	}
	return pairs
}

// Restore rebuilds an ordered conversation from messages that may arrive in
// any order, e.g. a replayed stream.
func Restore(meta ConversationMeta, msgs []Message) *Conversation {
	conv := NewConversation(meta)
	for _, msg := range msgs {
		conv.Append(msg)
	}
	return conv
}

// ListConversationsRequest lists conversations of a collection or application.
type ListConversationsRequest struct {
	CollectionBaseRequest
}

// ListConversationsResponse is the response for listing conversations.
type ListConversationsResponse struct {
	Conversations []ConversationMeta `json:"conversations"`
}

// GetConversationRequest fetches one conversation by id.
type GetConversationRequest struct {
	ConversationID string `json:"conversation_id"`
}

// GetConversationResponse carries a full conversation.
type GetConversationResponse struct {
	Conversation Conversation `json:"conversation"`
}
