// Package ids centralises identifier generation and context propagation for
// sessions, messages, workflow runs, and LLM requests.
package ids

import (
	"context"

	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
)

// Session, message, and workflow identifiers are UUIDv4 strings (36 chars),
// matching the persisted schema.

// NewSessionID generates a new session identifier.
func NewSessionID() string {
	return uuid.NewString()
}

// NewMessageID generates a new message identifier.
func NewMessageID() string {
	return uuid.NewString()
}

// NewWorkflowID generates a per-run workflow identifier.
func NewWorkflowID() string {
	return uuid.NewString()
}

// NewRequestID generates a sortable identifier for a single outbound LLM
// request, used to correlate request/response debug logs.
func NewRequestID() string {
	return "req_" + ksuid.New().String()
}

type contextKey string

const (
	sessionKey  contextKey = "medassist_session_id"
	workflowKey contextKey = "medassist_workflow_id"
)

// WithSessionID stores the session identifier on the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// SessionID returns the session identifier from the context, if any.
func SessionID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(sessionKey).(string); ok {
		return v
	}
	return ""
}

// WithWorkflowID stores the run identifier on the context.
func WithWorkflowID(ctx context.Context, workflowID string) context.Context {
	if workflowID == "" {
		return ctx
	}
	return context.WithValue(ctx, workflowKey, workflowID)
}

// WorkflowID returns the run identifier from the context, if any.
func WorkflowID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(workflowKey).(string); ok {
		return v
	}
	return ""
}
