package model

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMissingTimestamp is returned when a message arrives without a timestamp.
// Such a message cannot be placed in a conversation log.
var ErrMissingTimestamp = errors.New("message timestamp is required")

// Role represents the role of a message sender.
//
// Roles are an open vocabulary: providers use different names (tool, ipython,
// function, ...) and any value is accepted.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Message is one turn in a conversation.
type Message struct {
	Timestamp int64  `json:"timestamp" yaml:"timestamp"`
	RequestID string `json:"request_id" yaml:"request_id"`
	Role      Role   `json:"role" yaml:"role"`
	Content   string `json:"content" yaml:"content"`
}

// UnmarshalJSON rejects messages whose timestamp is absent or null.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Timestamp *int64 `json:"timestamp"`
		RequestID string `json:"request_id"`
		Role      Role   `json:"role"`
		Content   string `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if raw.Timestamp == nil {
		return ErrMissingTimestamp
	}

	*m = Message{
		Timestamp: *raw.Timestamp,
		RequestID: raw.RequestID,
		Role:      raw.Role,
		Content:   raw.Content,
	}
	return nil
}
