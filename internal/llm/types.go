package llm

import "context"

// Class selects a model family for a call.
type Class string

const (
	// ClassBasic is the default chat model.
	ClassBasic Class = "basic"
	// ClassReasoning is used when deep-thinking mode is requested.
	ClassReasoning Class = "reasoning"
	// ClassVision is reserved for workers that consume screenshots.
	ClassVision Class = "vision"
)

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	// Name records which worker authored the message, when known.
	Name string `json:"name,omitempty"`
}

// CompletionRequest contains all parameters for an LLM completion.
type CompletionRequest struct {
	Messages    []Message      `json:"messages"`
	Tools       []ToolSchema   `json:"tools,omitempty"`
	Temperature float64        `json:"temperature,omitempty"`
	MaxTokens   int            `json:"max_tokens,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// ToolSchema describes a callable function for the model.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema defines tool parameters (JSON Schema format).
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a single parameter.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description"`
	Enum        []any  `json:"enum,omitempty"`
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// TokenUsage tracks token consumption.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse is the model's aggregated reply.
type CompletionResponse struct {
	// MessageID identifies the assistant message across stream deltas.
	MessageID        string     `json:"message_id"`
	Content          string     `json:"content"`
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
	StopReason       string     `json:"stop_reason"`
	Usage            TokenUsage `json:"usage"`
}

// ContentDelta is one streamed token group.
type ContentDelta struct {
	MessageID        string
	Content          string
	ReasoningContent string
	Final            bool
}

// StreamCallbacks receive incremental output during a streaming call.
type StreamCallbacks struct {
	OnContentDelta func(delta ContentDelta)
}

// Client represents any LLM provider.
type Client interface {
	// Complete sends messages and returns a response (non-streaming).
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Stream sends messages and invokes callbacks per delta while building
	// the final aggregated response.
	Stream(ctx context.Context, req CompletionRequest, callbacks StreamCallbacks) (*CompletionResponse, error)

	// Model returns the model identifier.
	Model() string
}
