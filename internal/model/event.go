package model

import (
	"time"
)

// EventType represents the type of session event.
type EventType string

const (
	EventTypeError   EventType = "error"
	EventTypeCreated EventType = "created"
	EventTypeClosed  EventType = "closed"
)

// SessionEvent records something that happened to a chat session outside of
// its transcript, such as a failed ask.
type SessionEvent struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"session_id"`
	ConversationID string         `json:"conversation_id,omitempty"`
	SourceID       string         `json:"source_id"`
	Type           EventType      `json:"type"`
	Reason         string         `json:"reason,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// HeartbeatEvent keeps a transcript stream open.
type HeartbeatEvent struct {
	Timestamp time.Time `json:"timestamp"`
}

// ErrorEvent reports a failure on a transcript stream.
type ErrorEvent struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ReplayCompleteEvent ends the replay part of a transcript stream.
// LastTimestamp and SeenAtLast form the cursor for resuming the stream:
// ?after_ts=<last_timestamp>&seen=<seen_at_last>.
type ReplayCompleteEvent struct {
	LastTimestamp int64 `json:"last_timestamp"`
	SeenAtLast    int   `json:"seen_at_last"`
	MessageCount  int   `json:"message_count"`
}
