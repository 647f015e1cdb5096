// Package workflow implements the state-graph engine that routes a user turn
// through the worker nodes.
package workflow

import (
	"encoding/json"

	"medassist/internal/llm"
)

// End is the terminal goto sentinel.
const End = "__end__"

// State is the live run state. It exists for one run and is snapshotted into
// the session on termination.
type State struct {
	WorkflowID           string        `json:"workflow_id"`
	TeamMembers          []string      `json:"team_members"`
	DeepThinking         bool          `json:"deep_thinking_mode"`
	SearchBeforePlanning bool          `json:"search_before_planning"`
	Messages             []llm.Message `json:"messages"`
	Next                 string        `json:"next"`
	FullPlan             string        `json:"full_plan"`
}

// Patch is the partial update a node returns. Messages are appended; scalar
// fields replace only when set.
type Patch struct {
	Messages []llm.Message
	Next     *string
	FullPlan *string
}

// Command is a node's return value: a patch plus the next node to run.
type Command struct {
	Patch Patch
	Goto  string
}

// Apply merges the patch into the state. All fields land before the engine
// consults the command's goto.
func (s *State) Apply(p Patch) {
	s.Messages = append(s.Messages, p.Messages...)
	if p.Next != nil {
		s.Next = *p.Next
	}
	if p.FullPlan != nil {
		s.FullPlan = *p.FullPlan
	}
}

// UserInput returns the content of the most recent user message.
func (s *State) UserInput() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "user" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// OnTeam reports whether the worker is part of this run's roster.
func (s *State) OnTeam(worker string) bool {
	for _, m := range s.TeamMembers {
		if m == worker {
			return true
		}
	}
	return false
}

// Snapshot serializes the state for the session's terminal snapshot.
func (s *State) Snapshot() (json.RawMessage, error) {
	return json.Marshal(s)
}

func stringPtr(v string) *string { return &v }
