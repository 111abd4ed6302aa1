package model

import (
	"time"
)

// Session is a chat session held by the gateway on behalf of a caller.
type Session struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenant_id"`
	UserID          string    `json:"user_id"`
	CollectionName  string    `json:"collection_name,omitempty"`
	ApplicationName string    `json:"application_name,omitempty"`
	DocName         string    `json:"doc_name,omitempty"`
	ConversationID  string    `json:"conversation_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	MessageCount    int       `json:"message_count"`
}

// CreateSessionRequest is the request to open a chat session. Exactly one of
// CollectionName and ApplicationName is set. A ConversationID resumes an
// existing conversation.
type CreateSessionRequest struct {
	CollectionName  string `json:"collection_name,omitempty"`
	ApplicationName string `json:"application_name,omitempty"`
	DocName         string `json:"doc_name,omitempty"`
	ConversationID  string `json:"conversation_id,omitempty"`
}

// ListSessionsResponse is the response for listing sessions.
type ListSessionsResponse struct {
	Sessions []Session `json:"sessions"`
	Total    int       `json:"total"`
}

// AskSessionRequest asks a question within a session.
type AskSessionRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k,omitempty"`
}

// AskSessionResponse is the answer within a session.
type AskSessionResponse struct {
	Answer         string            `json:"answer"`
	Refs           []AnswerReference `json:"refs"`
	RequestID      string            `json:"request_id,omitempty"`
	ConversationID string            `json:"conversation_id,omitempty"`
}

// ListMessagesResponse is the ordered transcript of a session.
type ListMessagesResponse struct {
	Meta     ConversationMeta `json:"meta"`
	Messages []Message        `json:"messages"`
}
