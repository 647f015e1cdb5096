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

// maxReactIterations bounds the think/act loop of a single worker turn.
const maxReactIterations = 6

// reactNode drives one team worker as a loop of LLM call, optional tool
// calls, and observation, until the model answers without requesting tools.
type reactNode struct {
	worker agent.Worker
	deps   *Deps
	logger logging.Logger
}

func newReactNode(worker agent.Worker, deps *Deps) *reactNode {
	return &reactNode{
		worker: worker,
		deps:   deps,
		logger: logging.NewComponentLogger("React"),
	}
}

func (n *reactNode) Name() string { return n.worker.Name }

func (n *reactNode) Run(ctx context.Context, s *State) (Command, error) {
	conversation := append([]llm.Message(nil), s.Messages...)
	schemas := n.deps.Tools.SchemasFor(n.worker.Tools)

	for iteration := 0; iteration < maxReactIterations; iteration++ {
		msgs, err := n.deps.Prompts.Bind(n.worker.Name, prompts.BindContext{TeamMembers: s.TeamMembers}, conversation)
		if err != nil {
			return Command{}, err
		}

		resp, err := streamWorkerLLM(ctx, n.deps, n.worker.Name, n.worker.Class, s.DeepThinking, llm.CompletionRequest{
			Messages: msgs,
			Tools:    schemas,
		})
		if err != nil {
			return Command{}, err
		}

		if len(resp.ToolCalls) == 0 {
			return Command{
				Patch: Patch{Messages: []llm.Message{{
					Role:    "assistant",
					Content: resp.Content,
					Name:    n.worker.Name,
				}}},
				Goto: n.nextAfter(s),
			}, nil
		}

		if resp.Content != "" {
			conversation = append(conversation, llm.Message{Role: "assistant", Content: resp.Content, Name: n.worker.Name})
		}
		for _, tc := range resp.ToolCalls {
			observation, err := n.invokeTool(ctx, tc)
			if err != nil {
				return Command{}, err
			}
			conversation = append(conversation, llm.Message{
				Role:    "user",
				Content: fmt.Sprintf("Observation from %s:\n%s", tc.Name, observation),
			})
		}
	}
	return Command{}, fmt.Errorf("worker %s exceeded %d tool iterations", n.worker.Name, maxReactIterations)
}

// invokeTool runs one tool call inside the projector's tool bracket. Tool
// failures come back as observation text so the model can adjust.
func (n *reactNode) invokeTool(ctx context.Context, tc llm.ToolCall) (string, error) {
	toolCallID, err := n.deps.Projector.ToolStarted(ctx, n.worker.Name, tc.Name, tc.Arguments)
	if err != nil {
		return "", err
	}
	call := tools.Call{
		ID:         toolCallID,
		Arguments:  tc.Arguments,
		OnProgress: n.progressLogger(tc.Name),
	}
	result, err := n.deps.Tools.Execute(ctx, tc.Name, call)
	if err != nil {
		return "", err
	}
	if result.Error != nil {
		n.logger.Warn("Tool %s failed for %s: %v", tc.Name, n.worker.Name, result.Error)
	}
	if err := n.deps.Projector.ToolFinished(ctx, toolCallID, tc.Name, result.Content); err != nil {
		return "", err
	}
	return result.Content, nil
}

// progressLogger relays tool progress lines. Debug runs surface them at info
// so a live tail shows what a long tool call is doing.
func (n *reactNode) progressLogger(toolName string) func(string) {
	return func(message string) {
		if n.deps.Debug {
			n.logger.Info("[%s/%s] %s", n.worker.Name, toolName, message)
			return
		}
		n.logger.Debug("[%s/%s] %s", n.worker.Name, toolName, message)
	}
}

// nextAfter picks the return edge: reporter ends the run, the translator
// continues to the planner when no plan exists yet (pre-planning
// translation), and everyone else reports back to the supervisor.
func (n *reactNode) nextAfter(s *State) string {
	switch {
	case n.worker.Name == agent.Reporter:
		return End
	case n.worker.Name == agent.Translator && s.FullPlan == "":
		return agent.Planner
	default:
		return agent.Supervisor
	}
}
