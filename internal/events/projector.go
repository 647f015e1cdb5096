package events

import (
	"context"
	"fmt"
	"strings"

	"medassist/internal/agent"
	"medassist/internal/llm"
	"medassist/internal/logging"
)

// coordinatorLookahead is how many content deltas are buffered before the
// projector decides whether the coordinator is handing off. A handoff marker
// always fits inside the first few token groups, so chattering the marker to
// the client is avoided without delaying normal replies noticeably.
const coordinatorLookahead = 3

const handoffPrefix = "handoff"

// Projector turns engine activity into the closed event set for one run. It
// owns the identifier discipline: agent ids are {workflow}_{worker}_{step},
// tool call ids are {workflow}_{worker}_{tool}_{n}.
//
// Only roster members plus the planner and coordinator appear on the stream;
// routing workers such as the supervisor execute silently.
//
// A projector is fed by a single engine goroutine and needs no locking.
type Projector struct {
	workflowID string
	input      string
	stream     *Stream
	logger     logging.Logger
	visible    map[string]bool

	workflowStarted bool
	step            int
	toolCounters    map[string]int
	mutedAgents     map[string]bool

	// coordinator delta gate
	gateActive     bool
	gateDecided    bool
	gateSuppressed bool
	gateBuffer     []llm.ContentDelta
}

func NewProjector(workflowID, input string, roster []string, stream *Stream) *Projector {
	visible := map[string]bool{
		agent.Coordinator: true,
		agent.Planner:     true,
	}
	for _, member := range roster {
		visible[member] = true
	}
	return &Projector{
		workflowID:   workflowID,
		input:        input,
		stream:       stream,
		logger:       logging.NewComponentLogger("Projector"),
		visible:      visible,
		toolCounters: make(map[string]int),
		mutedAgents:  make(map[string]bool),
	}
}

func (p *Projector) WorkflowID() string { return p.workflowID }

// WorkflowStarted reports whether start_of_workflow has been emitted, i.e.
// whether this run went beyond the coordinator fast path.
func (p *Projector) WorkflowStarted() bool { return p.workflowStarted }

// EnterAgent emits the agent bracket opening and returns the agent id. The
// first planner entry also opens the workflow scope: coordinator-only runs
// stay plain chat and never carry workflow events.
func (p *Projector) EnterAgent(ctx context.Context, worker string) (string, error) {
	if worker == agent.Planner && !p.workflowStarted {
		p.workflowStarted = true
		if err := p.stream.Emit(ctx, NewStartOfWorkflow(p.workflowID, p.input)); err != nil {
			return "", err
		}
	}
	p.step++
	agentID := fmt.Sprintf("%s_%s_%d", p.workflowID, worker, p.step)
	if !p.visible[worker] {
		p.mutedAgents[agentID] = true
		return agentID, nil
	}
	return agentID, p.stream.Emit(ctx, NewStartOfAgent(agentID, worker))
}

func (p *Projector) ExitAgent(ctx context.Context, agentID string) error {
	if p.mutedAgents[agentID] {
		delete(p.mutedAgents, agentID)
		return nil
	}
	return p.stream.Emit(ctx, NewEndOfAgent(agentID))
}

// LLMStarted opens an LLM bracket. For the coordinator it also arms the
// delta gate so a handoff marker is never streamed to the client.
func (p *Projector) LLMStarted(ctx context.Context, worker string) error {
	if worker == agent.Coordinator {
		p.gateActive = true
		p.gateDecided = false
		p.gateSuppressed = false
		p.gateBuffer = nil
	}
	if !p.visible[worker] {
		return nil
	}
	return p.stream.Emit(ctx, NewStartOfLLM(worker))
}

func (p *Projector) LLMEnded(ctx context.Context, worker string) error {
	p.gateActive = false
	if !p.visible[worker] {
		return nil
	}
	return p.stream.Emit(ctx, NewEndOfLLM(worker))
}

// OnDelta forwards one token group as a message event. Coordinator deltas are
// buffered until the gate decides between streaming and suppression.
func (p *Projector) OnDelta(ctx context.Context, d llm.ContentDelta) error {
	if !p.gateActive {
		return p.emitDelta(ctx, d)
	}

	if p.gateDecided {
		if p.gateSuppressed {
			return nil
		}
		return p.emitDelta(ctx, d)
	}

	if !d.Final {
		p.gateBuffer = append(p.gateBuffer, d)
	}
	if len(p.gateBuffer) < coordinatorLookahead && !d.Final {
		return nil
	}

	var concat strings.Builder
	for _, buffered := range p.gateBuffer {
		concat.WriteString(buffered.Content)
	}
	p.gateDecided = true
	p.gateSuppressed = strings.HasPrefix(strings.TrimSpace(strings.ToLower(concat.String())), handoffPrefix)
	if p.gateSuppressed {
		p.logger.Debug("Coordinator handoff detected, suppressing its message stream")
		return nil
	}
	for _, buffered := range p.gateBuffer {
		if err := p.emitDelta(ctx, buffered); err != nil {
			return err
		}
	}
	p.gateBuffer = nil
	return nil
}

func (p *Projector) emitDelta(ctx context.Context, d llm.ContentDelta) error {
	if d.Content == "" && d.ReasoningContent == "" {
		return nil
	}
	return p.stream.Emit(ctx, NewMessage(d.MessageID, MessageDelta{
		Content:          d.Content,
		ReasoningContent: d.ReasoningContent,
	}))
}

// ToolStarted emits the tool_call event and returns the tool call id.
func (p *Projector) ToolStarted(ctx context.Context, worker, toolName string, input any) (string, error) {
	key := worker + "_" + toolName
	p.toolCounters[key]++
	id := fmt.Sprintf("%s_%s_%d", p.workflowID, key, p.toolCounters[key])
	return id, p.stream.Emit(ctx, NewToolCall(id, toolName, input))
}

func (p *Projector) ToolFinished(ctx context.Context, toolCallID, toolName, result string) error {
	return p.stream.Emit(ctx, NewToolCallResult(toolCallID, toolName, result))
}
