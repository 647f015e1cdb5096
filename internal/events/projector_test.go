package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/agent"
	"medassist/internal/llm"
)

func drain(stream *Stream) []Event {
	stream.Close()
	var out []Event
	for ev := range stream.Events() {
		out = append(out, ev)
	}
	return out
}

func payloadJSON(t *testing.T, ev Event) map[string]any {
	t.Helper()
	raw, err := json.Marshal(ev.Data)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestAgentIDDiscipline(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "input", agent.DefaultTeam(), stream)
	ctx := context.Background()

	id1, err := p.EnterAgent(ctx, agent.Coordinator)
	require.NoError(t, err)
	require.NoError(t, p.ExitAgent(ctx, id1))
	id2, err := p.EnterAgent(ctx, agent.Planner)
	require.NoError(t, err)

	assert.Equal(t, "wf1_coordinator_1", id1)
	assert.Equal(t, "wf1_planner_2", id2)
}

func TestStartOfWorkflowAtPlannerEntryOnly(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "the question", agent.DefaultTeam(), stream)
	ctx := context.Background()

	id, _ := p.EnterAgent(ctx, agent.Coordinator)
	_ = p.ExitAgent(ctx, id)
	assert.False(t, p.WorkflowStarted())

	id, _ = p.EnterAgent(ctx, agent.Planner)
	_ = p.ExitAgent(ctx, id)
	assert.True(t, p.WorkflowStarted())

	// a second planner entry must not re-open the workflow scope
	id, _ = p.EnterAgent(ctx, agent.Planner)
	_ = p.ExitAgent(ctx, id)

	var workflowStarts int
	evts := drain(stream)
	for i, ev := range evts {
		if ev.Type == TypeStartOfWorkflow {
			workflowStarts++
			// it must immediately precede the planner's start_of_agent
			require.Less(t, i+1, len(evts))
			assert.Equal(t, TypeStartOfAgent, evts[i+1].Type)
		}
	}
	assert.Equal(t, 1, workflowStarts)

	start := payloadJSON(t, evts[2])
	assert.Equal(t, "wf1", start["workflow_id"])
	assert.Equal(t, "the question", start["input"])
}

func TestSupervisorNeverAppearsOnStream(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "", agent.DefaultTeam(), stream)
	ctx := context.Background()

	id, err := p.EnterAgent(ctx, agent.Supervisor)
	require.NoError(t, err)
	require.NoError(t, p.LLMStarted(ctx, agent.Supervisor))
	require.NoError(t, p.LLMEnded(ctx, agent.Supervisor))
	require.NoError(t, p.ExitAgent(ctx, id))

	// the step counter still advances so later agent ids stay unique
	assert.Equal(t, "wf1_supervisor_1", id)
	id2, err := p.EnterAgent(ctx, agent.Reporter)
	require.NoError(t, err)
	assert.Equal(t, "wf1_reporter_2", id2)

	for _, ev := range drain(stream) {
		raw, err := json.Marshal(ev.Data)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), agent.Supervisor)
	}
}

func TestOffRosterWorkerNotBracketed(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "", []string{agent.Researcher, agent.Reporter}, stream)
	ctx := context.Background()

	id, err := p.EnterAgent(ctx, agent.Translator)
	require.NoError(t, err)
	require.NoError(t, p.ExitAgent(ctx, id))

	assert.Empty(t, drain(stream))
}

func TestToolCallIDCounter(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "", agent.DefaultTeam(), stream)
	ctx := context.Background()

	id1, err := p.ToolStarted(ctx, agent.Researcher, "web_search", map[string]any{"query": "x"})
	require.NoError(t, err)
	id2, err := p.ToolStarted(ctx, agent.Researcher, "web_search", nil)
	require.NoError(t, err)
	id3, err := p.ToolStarted(ctx, agent.Researcher, "crawl", nil)
	require.NoError(t, err)

	assert.Equal(t, "wf1_researcher_web_search_1", id1)
	assert.Equal(t, "wf1_researcher_web_search_2", id2)
	assert.Equal(t, "wf1_researcher_crawl_1", id3)
}

func TestCoordinatorGateSuppressesHandoff(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "", agent.DefaultTeam(), stream)
	ctx := context.Background()

	require.NoError(t, p.LLMStarted(ctx, agent.Coordinator))
	for _, d := range []llm.ContentDelta{
		{MessageID: "m1", Content: "hand"},
		{MessageID: "m1", Content: "off_to"},
		{MessageID: "m1", Content: "_planner"},
		{MessageID: "m1", Final: true},
	} {
		require.NoError(t, p.OnDelta(ctx, d))
	}
	require.NoError(t, p.LLMEnded(ctx, agent.Coordinator))

	for _, ev := range drain(stream) {
		assert.NotEqual(t, TypeMessage, ev.Type)
	}
}

func TestCoordinatorGateFlushesNormalReply(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "", agent.DefaultTeam(), stream)
	ctx := context.Background()

	require.NoError(t, p.LLMStarted(ctx, agent.Coordinator))
	deltas := []llm.ContentDelta{
		{MessageID: "m1", Content: "Hello"},
		{MessageID: "m1", Content: ", how"},
		{MessageID: "m1", Content: " can I help?"},
		{MessageID: "m1", Content: " More text."},
		{MessageID: "m1", Final: true},
	}
	for _, d := range deltas {
		require.NoError(t, p.OnDelta(ctx, d))
	}
	require.NoError(t, p.LLMEnded(ctx, agent.Coordinator))

	var content string
	for _, ev := range drain(stream) {
		if ev.Type != TypeMessage {
			continue
		}
		payload := payloadJSON(t, ev)
		delta := payload["delta"].(map[string]any)
		if c, ok := delta["content"].(string); ok {
			content += c
		}
	}
	assert.Equal(t, "Hello, how can I help? More text.", content)
}

func TestNonCoordinatorDeltasPassThrough(t *testing.T) {
	stream := NewStream()
	p := NewProjector("wf1", "", agent.DefaultTeam(), stream)
	ctx := context.Background()

	require.NoError(t, p.LLMStarted(ctx, agent.Reporter))
	require.NoError(t, p.OnDelta(ctx, llm.ContentDelta{MessageID: "m1", Content: "report text"}))
	require.NoError(t, p.OnDelta(ctx, llm.ContentDelta{MessageID: "m1", ReasoningContent: "thinking"}))
	require.NoError(t, p.LLMEnded(ctx, agent.Reporter))

	var messages int
	for _, ev := range drain(stream) {
		if ev.Type == TypeMessage {
			messages++
		}
	}
	assert.Equal(t, 2, messages)
}
