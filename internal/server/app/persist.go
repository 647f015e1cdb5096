package app

import (
	"encoding/json"

	"medassist/internal/agent"
	"medassist/internal/llm"
)

// workflowArtifact is the stored form of a structured worker output.
type workflowArtifact struct {
	AgentName string          `json:"agent_name"`
	Plan      json.RawMessage `json:"plan,omitempty"`
	Content   string          `json:"content,omitempty"`
}

// workflowEnvelope wraps a worker output as `{"workflow": ...}`. The planner's
// output is already JSON and is embedded as-is; other workers' text rides in
// a content field.
func workflowEnvelope(m llm.Message) (string, error) {
	artifact := workflowArtifact{AgentName: m.Name}
	if m.Name == agent.Planner && json.Valid([]byte(m.Content)) {
		artifact.Plan = json.RawMessage(m.Content)
	} else {
		artifact.Content = m.Content
	}
	raw, err := json.Marshal(struct {
		Workflow workflowArtifact `json:"workflow"`
	}{Workflow: artifact})
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
