package workflow

import (
	"context"
	"strings"
	"unicode"

	"medassist/internal/agent"
	"medassist/internal/llm"
	"medassist/internal/prompts"
)

// handoffMarker is the exact token the coordinator prompt instructs the
// model to emit when the request needs the full team.
const handoffMarker = "handoff_to_planner"

type coordinatorNode struct {
	deps *Deps
}

func newCoordinatorNode(deps *Deps) *coordinatorNode { return &coordinatorNode{deps: deps} }

func (n *coordinatorNode) Name() string { return agent.Coordinator }

// Run answers trivial turns directly and hands everything else to the
// planner, routing through the translator first for non-English input when
// one is on the roster.
func (n *coordinatorNode) Run(ctx context.Context, s *State) (Command, error) {
	msgs, err := n.deps.Prompts.Bind(agent.Coordinator, prompts.BindContext{TeamMembers: s.TeamMembers}, s.Messages)
	if err != nil {
		return Command{}, err
	}

	resp, err := streamWorkerLLM(ctx, n.deps, agent.Coordinator, llm.ClassBasic, false, llm.CompletionRequest{Messages: msgs})
	if err != nil {
		return Command{}, err
	}

	if strings.Contains(resp.Content, handoffMarker) {
		target := agent.Planner
		if s.OnTeam(agent.Translator) && !looksEnglish(s.UserInput()) {
			target = agent.Translator
		}
		return Command{Goto: target}, nil
	}

	return Command{
		Patch: Patch{Messages: []llm.Message{{
			Role:    "assistant",
			Content: resp.Content,
			Name:    agent.Coordinator,
		}}},
		Goto: End,
	}, nil
}

// looksEnglish is a cheap script check: any CJK, Cyrillic, Arabic, or other
// non-Latin letters mark the input for translation.
func looksEnglish(text string) bool {
	for _, r := range text {
		if unicode.IsLetter(r) && !unicode.In(r, unicode.Latin) {
			return false
		}
	}
	return true
}
