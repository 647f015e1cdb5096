package workflow

import (
	"context"
	"fmt"

	"medassist/internal/agent"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/prompts"
)

// routeFinish is the supervisor's terminal routing value.
const routeFinish = "FINISH"

// routeDecision is the supervisor's structured output.
type routeDecision struct {
	Next string `json:"next"`
}

type supervisorNode struct {
	deps   *Deps
	logger logging.Logger
}

func newSupervisorNode(deps *Deps) *supervisorNode {
	return &supervisorNode{deps: deps, logger: logging.NewComponentLogger("Supervisor")}
}

func (n *supervisorNode) Name() string { return agent.Supervisor }

// Run asks the model which worker acts next. The structured invoke already
// retries malformed output once; a second failure ends the run.
func (n *supervisorNode) Run(ctx context.Context, s *State) (Command, error) {
	msgs, err := n.deps.Prompts.Bind(agent.Supervisor, prompts.BindContext{TeamMembers: s.TeamMembers}, s.Messages)
	if err != nil {
		return Command{}, err
	}

	client, err := n.deps.Models.Select(llm.ClassBasic, s.DeepThinking)
	if err != nil {
		return Command{}, err
	}

	if err := n.deps.Projector.LLMStarted(ctx, agent.Supervisor); err != nil {
		return Command{}, err
	}
	decision, _, err := llm.InvokeStructured[routeDecision](ctx, client, llm.CompletionRequest{Messages: msgs})
	if endErr := n.deps.Projector.LLMEnded(ctx, agent.Supervisor); endErr != nil && err == nil {
		err = endErr
	}
	if err != nil {
		return Command{}, fmt.Errorf("routing decision failed: %w", err)
	}

	if decision.Next == routeFinish {
		n.logger.Info("Supervisor finished run %s", s.WorkflowID)
		return Command{Patch: Patch{Next: stringPtr(decision.Next)}, Goto: End}, nil
	}
	if !s.OnTeam(decision.Next) {
		return Command{}, fmt.Errorf("supervisor routed to %q which is not on the roster", decision.Next)
	}
	n.logger.Info("Supervisor routed run %s to %s", s.WorkflowID, decision.Next)
	return Command{Patch: Patch{Next: stringPtr(decision.Next)}, Goto: decision.Next}, nil
}
