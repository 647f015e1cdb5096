// Package session persists chat sessions, their messages, and the final
// workflow state snapshot.
package session

import (
	"context"
	"encoding/json"
	"time"

	"medassist/internal/llm"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message types.
const (
	TypeText = "text"
	// TypeWorkflow marks structured workflow artifacts (plans, worker
	// outputs) stored as JSON.
	TypeWorkflow = "workflow"
)

// Session is one persisted conversation.
type Session struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id,omitempty"`
	State     json.RawMessage `json:"state,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Message is one persisted conversation entry.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Role      string    `json:"role"`
	Type      string    `json:"type"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the session persistence port.
type Store interface {
	CreateSession(ctx context.Context, userID string) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	// DeleteSession removes the session and all its messages.
	DeleteSession(ctx context.Context, id string) error
	// UpdateState replaces the session's state snapshot.
	UpdateState(ctx context.Context, id string, state json.RawMessage) error
	AddMessage(ctx context.Context, sessionID, role, msgType, content string) (*Message, error)
	// ListMessages returns the session's messages in creation order.
	ListMessages(ctx context.Context, sessionID string) ([]Message, error)
	Close() error
}

// ConversationHistory converts persisted messages into LLM conversation
// context. Workflow artifacts are skipped; the models see only the dialogue.
func ConversationHistory(msgs []Message) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		if m.Type != TypeText {
			continue
		}
		if m.Role != RoleUser && m.Role != RoleAssistant {
			continue
		}
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
