// Package events defines the closed event set streamed to clients and the
// projector that translates engine activity into it.
package events

import "medassist/internal/session"

// Type enumerates the streamed event kinds.
type Type string

const (
	TypeSessionID         Type = "session_id"
	TypeStartOfWorkflow   Type = "start_of_workflow"
	TypeStartOfAgent      Type = "start_of_agent"
	TypeEndOfAgent        Type = "end_of_agent"
	TypeStartOfLLM        Type = "start_of_llm"
	TypeEndOfLLM          Type = "end_of_llm"
	TypeMessage           Type = "message"
	TypeToolCall          Type = "tool_call"
	TypeToolCallResult    Type = "tool_call_result"
	TypeEndOfWorkflow     Type = "end_of_workflow"
	TypeFinalSessionState Type = "final_session_state"
	TypeError             Type = "error"
)

// Event is one streamed event. Data marshals to the event's JSON payload.
type Event struct {
	Type Type
	Data any
}

// ChatMessage is the client-facing shape of a conversation message used in
// terminal events.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

type sessionIDPayload struct {
	SessionID string `json:"session_id"`
}

type startOfWorkflowPayload struct {
	WorkflowID string `json:"workflow_id"`
	Input      string `json:"input"`
}

type agentPayload struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name,omitempty"`
}

type llmPayload struct {
	AgentName string `json:"agent_name"`
}

// MessageDelta carries one token group of an LLM message.
type MessageDelta struct {
	Content          string `json:"content,omitempty"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

type messagePayload struct {
	MessageID string       `json:"message_id"`
	Delta     MessageDelta `json:"delta"`
}

type toolCallPayload struct {
	ToolCallID string `json:"tool_call_id"`
	ToolName   string `json:"tool_name"`
	ToolInput  any    `json:"tool_input,omitempty"`
	ToolResult string `json:"tool_result,omitempty"`
}

type endOfWorkflowPayload struct {
	WorkflowID string        `json:"workflow_id"`
	Messages   []ChatMessage `json:"messages"`
}

type finalSessionStatePayload struct {
	Messages []session.Message `json:"messages"`
}

type errorPayload struct {
	WorkflowID string `json:"workflow_id,omitempty"`
	Detail     string `json:"detail"`
}

func NewSessionID(id string) Event {
	return Event{Type: TypeSessionID, Data: sessionIDPayload{SessionID: id}}
}

func NewStartOfWorkflow(workflowID, input string) Event {
	return Event{Type: TypeStartOfWorkflow, Data: startOfWorkflowPayload{WorkflowID: workflowID, Input: input}}
}

func NewStartOfAgent(agentID, agentName string) Event {
	return Event{Type: TypeStartOfAgent, Data: agentPayload{AgentID: agentID, AgentName: agentName}}
}

func NewEndOfAgent(agentID string) Event {
	return Event{Type: TypeEndOfAgent, Data: agentPayload{AgentID: agentID}}
}

func NewStartOfLLM(agentName string) Event {
	return Event{Type: TypeStartOfLLM, Data: llmPayload{AgentName: agentName}}
}

func NewEndOfLLM(agentName string) Event {
	return Event{Type: TypeEndOfLLM, Data: llmPayload{AgentName: agentName}}
}

func NewMessage(messageID string, delta MessageDelta) Event {
	return Event{Type: TypeMessage, Data: messagePayload{MessageID: messageID, Delta: delta}}
}

func NewToolCall(toolCallID, toolName string, toolInput any) Event {
	return Event{Type: TypeToolCall, Data: toolCallPayload{ToolCallID: toolCallID, ToolName: toolName, ToolInput: toolInput}}
}

func NewToolCallResult(toolCallID, toolName, toolResult string) Event {
	return Event{Type: TypeToolCallResult, Data: toolCallPayload{ToolCallID: toolCallID, ToolName: toolName, ToolResult: toolResult}}
}

func NewEndOfWorkflow(workflowID string, messages []ChatMessage) Event {
	return Event{Type: TypeEndOfWorkflow, Data: endOfWorkflowPayload{WorkflowID: workflowID, Messages: messages}}
}

func NewFinalSessionState(messages []session.Message) Event {
	return Event{Type: TypeFinalSessionState, Data: finalSessionStatePayload{Messages: messages}}
}

func NewError(workflowID, detail string) Event {
	return Event{Type: TypeError, Data: errorPayload{WorkflowID: workflowID, Detail: detail}}
}
