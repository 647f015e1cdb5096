package workflow

import (
	"medassist/internal/errors"
	"medassist/internal/llm"
)

// Plan is the planner's structured breakdown of the run.
type Plan struct {
	Thought string     `json:"thought"`
	Title   string     `json:"title"`
	Steps   []PlanStep `json:"steps"`
}

// PlanStep assigns one task to a worker.
type PlanStep struct {
	AgentName   string `json:"agent_name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Note        string `json:"note,omitempty"`
}

// ParsePlan decodes planner output, tolerating markdown fences and minor
// JSON damage. An empty step list is treated as a schema violation.
func ParsePlan(raw string) (*Plan, error) {
	var plan Plan
	if err := llm.DecodeStructured(raw, &plan); err != nil {
		return nil, err
	}
	if len(plan.Steps) == 0 {
		return nil, errors.NewSchemaError("plan with at least one step", raw, nil)
	}
	return &plan, nil
}
