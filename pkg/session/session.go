// Package session owns per-conversation message history and the
// bounded context window handed to agents.
package session

import (
	"errors"
	"time"
)

// Message roles. Ordering of messages within a session is significant
// and must match real-world arrival order.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ErrInvalidMessage reports a message missing required fields.
var ErrInvalidMessage = errors.New("session: invalid message")

// Message is a single conversational turn. Immutable once appended.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	AgentType string    `json:"agent_type,omitempty"`
}

// Session is one logical conversation owned by a single user.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

func cloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	return append([]Message(nil), msgs...)
}
