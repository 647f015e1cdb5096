package workflow

import (
	"context"
	"fmt"

	"medassist/internal/agent"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/prompts"
	"medassist/internal/tools"
)

type plannerNode struct {
	deps   *Deps
	logger logging.Logger
}

func newPlannerNode(deps *Deps) *plannerNode {
	return &plannerNode{deps: deps, logger: logging.NewComponentLogger("Planner")}
}

func (n *plannerNode) Name() string { return agent.Planner }

// Run produces the structured plan. With search-before-planning set, search
// results are folded into the conversation first; a search failure only
// degrades the prompt, it never fails the run.
func (n *plannerNode) Run(ctx context.Context, s *State) (Command, error) {
	conversation := s.Messages
	if s.SearchBeforePlanning {
		if results := n.preSearch(ctx, s); results != "" {
			conversation = append(append([]llm.Message(nil), conversation...), llm.Message{
				Role:    "user",
				Content: "Relevant web search results for planning context:\n\n" + results,
			})
		}
	}

	msgs, err := n.deps.Prompts.Bind(agent.Planner, prompts.BindContext{TeamMembers: s.TeamMembers}, conversation)
	if err != nil {
		return Command{}, err
	}

	resp, err := streamWorkerLLM(ctx, n.deps, agent.Planner, llm.ClassBasic, s.DeepThinking, llm.CompletionRequest{Messages: msgs})
	if err != nil {
		return Command{}, err
	}

	plan, err := ParsePlan(resp.Content)
	if err != nil {
		return Command{}, fmt.Errorf("plan did not parse: %w", err)
	}
	n.logger.Info("Plan %q with %d steps", plan.Title, len(plan.Steps))

	return Command{
		Patch: Patch{
			FullPlan: stringPtr(resp.Content),
			Messages: []llm.Message{{
				Role:    "assistant",
				Content: resp.Content,
				Name:    agent.Planner,
			}},
		},
		Goto: agent.Supervisor,
	}, nil
}

func (n *plannerNode) preSearch(ctx context.Context, s *State) string {
	result, err := n.deps.Tools.Execute(ctx, "web_search", tools.Call{
		ID:        s.WorkflowID + "_planner_presearch",
		Arguments: map[string]any{"query": s.UserInput()},
	})
	if err != nil {
		n.logger.Warn("Search before planning failed: %v", err)
		return ""
	}
	if result.Error != nil {
		n.logger.Warn("Search before planning failed: %v", result.Error)
		return ""
	}
	return result.Content
}
