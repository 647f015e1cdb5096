// Package agent defines the closed set of workers the workflow engine can
// schedule, together with their descriptions and per-worker defaults.
package agent

import (
	"fmt"

	"medassist/internal/errors"
	"medassist/internal/llm"
)

// Worker names. The engine, prompts, and projector all key off these.
const (
	Coordinator = "coordinator"
	Planner     = "planner"
	Supervisor  = "supervisor"
	Researcher  = "researcher"
	Coder       = "coder"
	Browser     = "browser"
	Reporter    = "reporter"
	Translator  = "translator"
)

// Worker describes one registry entry.
type Worker struct {
	Name string `json:"name"`
	// Desc is shown to humans on the team-members endpoint.
	Desc string `json:"desc"`
	// DescForLLM is substituted into the supervisor/planner prompts.
	DescForLLM string `json:"desc_for_llm"`
	// Optional workers may be omitted from a run's roster.
	Optional bool `json:"is_optional"`
	// Class is the default model class for the worker.
	Class llm.Class `json:"-"`
	// Tools lists the tool names available to the worker.
	Tools []string `json:"-"`
	// TeamMember marks workers the supervisor may dispatch to. Control
	// workers (coordinator, planner, supervisor) are not dispatchable.
	TeamMember bool `json:"-"`
}

// registry is ordered: control workers first, then team members in dispatch
// preference order. Listing order is stable.
var registry = []Worker{
	{
		Name:       Coordinator,
		Desc:       "Handles the conversation entry point and small talk, deciding whether a request needs the full team.",
		DescForLLM: "Communicates with the user and hands complex requests to the planner.",
		Optional:   false,
		Class:      llm.ClassBasic,
	},
	{
		Name:       Planner,
		Desc:       "Breaks a request into an ordered plan of steps assigned to team members.",
		DescForLLM: "Produces the full execution plan for the team.",
		Optional:   false,
		Class:      llm.ClassBasic,
	},
	{
		Name:       Supervisor,
		Desc:       "Routes work between team members according to the plan and finishes the run.",
		DescForLLM: "Decides which team member acts next.",
		Optional:   false,
		Class:      llm.ClassBasic,
	},
	{
		Name:       Researcher,
		Desc:       "Searches the web and medical literature, crawls pages, and summarises findings.",
		DescForLLM: "Uses web search, URL crawling and medical abstract search to gather information. Cannot do math or programming.",
		Optional:   true,
		Class:      llm.ClassBasic,
		Tools:      []string{"web_search", "crawl", "abstract_search"},
		TeamMember: true,
	},
	{
		Name:       Coder,
		Desc:       "Executes Python or shell snippets for calculations and data wrangling.",
		DescForLLM: "Runs Python code and shell commands to compute, transform, or verify data.",
		Optional:   true,
		Class:      llm.ClassBasic,
		Tools:      []string{"python_exec", "bash_exec"},
		TeamMember: true,
	},
	{
		Name:       Browser,
		Desc:       "Drives a real browser for sites that need navigation or interaction.",
		DescForLLM: "Performs complex browsing tasks: navigation, clicking, form input, content extraction.",
		Optional:   true,
		Class:      llm.ClassVision,
		Tools:      []string{"browser"},
		TeamMember: true,
	},
	{
		Name:       Reporter,
		Desc:       "Writes the final report presented to the user.",
		DescForLLM: "Summarises the team's work into the final answer. Always runs last.",
		Optional:   false,
		Class:      llm.ClassBasic,
		TeamMember: true,
	},
	{
		Name:       Translator,
		Desc:       "Translates non-English user input so the rest of the team works in English.",
		DescForLLM: "Translates the user's request into English before planning.",
		Optional:   true,
		Class:      llm.ClassBasic,
		TeamMember: true,
	},
}

// List returns all registered workers in stable order.
func List() []Worker {
	out := make([]Worker, len(registry))
	copy(out, registry)
	return out
}

// TeamMembers returns the dispatchable workers in stable order.
func TeamMembers() []Worker {
	var out []Worker
	for _, w := range registry {
		if w.TeamMember {
			out = append(out, w)
		}
	}
	return out
}

// Get looks up a worker by name.
func Get(name string) (Worker, bool) {
	for _, w := range registry {
		if w.Name == name {
			return w, true
		}
	}
	return Worker{}, false
}

// DefaultTeam is the roster used when a request does not name one.
func DefaultTeam() []string {
	return []string{Researcher, Coder, Browser, Reporter}
}

// ValidateRoster checks a client-supplied roster: every name must be a known
// team member, and no mandatory team member may be omitted. A nil roster
// selects the default team; an explicitly empty one is rejected.
func ValidateRoster(members []string) ([]string, error) {
	if members == nil {
		return DefaultTeam(), nil
	}
	if len(members) == 0 {
		return nil, errors.NewValidationError("team_members", "must not be empty")
	}

	seen := make(map[string]bool, len(members))
	for _, name := range members {
		w, ok := Get(name)
		if !ok || !w.TeamMember {
			return nil, errors.NewValidationError("team_members", fmt.Sprintf("unknown team member %q", name))
		}
		if seen[name] {
			return nil, errors.NewValidationError("team_members", fmt.Sprintf("duplicate team member %q", name))
		}
		seen[name] = true
	}

	for _, w := range TeamMembers() {
		if !w.Optional && !seen[w.Name] {
			return nil, errors.NewValidationError("team_members", fmt.Sprintf("mandatory team member %q missing", w.Name))
		}
	}

	return append([]string(nil), members...), nil
}
