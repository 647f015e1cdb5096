package workflow

import (
	"context"
	"fmt"

	"medassist/internal/agent"
	"medassist/internal/events"
	"medassist/internal/ids"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/prompts"
	"medassist/internal/tools"
)

// maxEngineSteps bounds a single run so a routing loop between supervisor
// and workers cannot spin forever.
const maxEngineSteps = 40

// Node is one executable graph node.
type Node interface {
	Name() string
	Run(ctx context.Context, s *State) (Command, error)
}

// Deps are the collaborators shared by all nodes of one run. Debug raises
// per-run verbosity: tool progress surfaces at info level.
type Deps struct {
	Prompts   *prompts.Loader
	Models    *llm.Resolver
	Tools     *tools.Registry
	Projector *events.Projector
	Debug     bool
}

// Engine interprets the worker graph for one run.
type Engine struct {
	deps   *Deps
	nodes  map[string]Node
	logger logging.Logger
}

// NewEngine wires the full node set: the control workers plus a react node
// per team-capable worker.
func NewEngine(deps *Deps) *Engine {
	e := &Engine{
		deps:   deps,
		nodes:  make(map[string]Node),
		logger: logging.NewComponentLogger("Engine"),
	}
	e.register(newCoordinatorNode(deps))
	e.register(newPlannerNode(deps))
	e.register(newSupervisorNode(deps))
	for _, w := range agent.TeamMembers() {
		e.register(newReactNode(w, deps))
	}
	return e
}

func (e *Engine) register(n Node) { e.nodes[n.Name()] = n }

// RunError tags an engine failure with the worker it happened in.
type RunError struct {
	Worker string
	Err    error
}

func (e *RunError) Error() string { return fmt.Sprintf("worker %s: %v", e.Worker, e.Err) }
func (e *RunError) Unwrap() error { return e.Err }

// Run drives the graph from the coordinator until a terminal sentinel, a
// node failure, or cancellation. The state is mutated in place; on a node
// failure it reflects every patch applied before the failing node.
func (e *Engine) Run(ctx context.Context, s *State) error {
	current := agent.Coordinator
	if sid := ids.SessionID(ctx); sid != "" {
		e.logger.Info("Starting run %s (session %s)", s.WorkflowID, sid)
	}

	for step := 0; step < maxEngineSteps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		node, ok := e.nodes[current]
		if !ok {
			return &RunError{Worker: current, Err: fmt.Errorf("unknown node %q", current)}
		}

		agentID, err := e.deps.Projector.EnterAgent(ctx, current)
		if err != nil {
			return err
		}
		e.logger.Info("Running node %s (workflow %s)", current, s.WorkflowID)

		cmd, runErr := node.Run(ctx, s)
		if exitErr := e.deps.Projector.ExitAgent(ctx, agentID); exitErr != nil && runErr == nil {
			runErr = exitErr
		}
		if runErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RunError{Worker: current, Err: runErr}
		}

		s.Apply(cmd.Patch)

		if cmd.Goto == End {
			e.logger.Info("Run %s finished at node %s", s.WorkflowID, current)
			return nil
		}
		if err := e.validateGoto(s, cmd.Goto); err != nil {
			return &RunError{Worker: current, Err: err}
		}
		current = cmd.Goto
	}
	return &RunError{Worker: current, Err: fmt.Errorf("run exceeded %d steps", maxEngineSteps)}
}

// validateGoto enforces that routed workers exist and that team members are
// on this run's roster.
func (e *Engine) validateGoto(s *State, target string) error {
	w, ok := agent.Get(target)
	if !ok {
		return fmt.Errorf("routed to unknown worker %q", target)
	}
	if _, registered := e.nodes[target]; !registered {
		return fmt.Errorf("worker %q has no node", target)
	}
	if w.TeamMember && !s.OnTeam(target) {
		return fmt.Errorf("worker %q is not on the team roster", target)
	}
	return nil
}
