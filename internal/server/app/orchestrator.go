// Package app orchestrates workflow runs: it owns session resolution, the
// one-run-per-session registry, run timeouts, and terminal persistence.
package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"medassist/internal/agent"
	"medassist/internal/errors"
	"medassist/internal/events"
	"medassist/internal/ids"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/metrics"
	"medassist/internal/prompts"
	"medassist/internal/session"
	"medassist/internal/tools"
	"medassist/internal/workflow"
)

// ErrRunActive is returned when a session already has a run in flight.
var ErrRunActive = stderrors.New("session already has an active run")

// RunRequest is one user turn.
type RunRequest struct {
	SessionID            string
	Input                string
	Debug                bool
	DeepThinking         bool
	SearchBeforePlanning bool
	TeamMembers          []string
}

// Orchestrator executes user turns against the worker graph.
type Orchestrator struct {
	store   session.Store
	prompts *prompts.Loader
	models  *llm.Resolver
	tools   *tools.Registry
	timeout time.Duration
	logger  logging.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewOrchestrator wires the run-time collaborators. timeout bounds a single
// run; zero means the default of ten minutes.
func NewOrchestrator(store session.Store, loader *prompts.Loader, models *llm.Resolver, registry *tools.Registry, timeout time.Duration) *Orchestrator {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Orchestrator{
		store:   store,
		prompts: loader,
		models:  models,
		tools:   registry,
		timeout: timeout,
		logger:  logging.NewComponentLogger("Orchestrator"),
		active:  make(map[string]struct{}),
	}
}

// StartTurn validates the request, persists the user turn, and launches the
// run. Events flow on the returned stream, which closes when the run
// terminates. ctx is the client's connection context: cancelling it aborts
// the run.
func (o *Orchestrator) StartTurn(ctx context.Context, req RunRequest) (*events.Stream, *session.Session, error) {
	if req.Input == "" {
		return nil, nil, errors.NewValidationError("messages", "last message must be a non-empty user message")
	}
	roster, err := agent.ValidateRoster(req.TeamMembers)
	if err != nil {
		return nil, nil, err
	}

	sess, err := o.resolveSession(ctx, req.SessionID)
	if err != nil {
		return nil, nil, err
	}

	if !o.acquire(sess.ID) {
		return nil, nil, ErrRunActive
	}

	history, err := o.store.ListMessages(ctx, sess.ID)
	if err != nil {
		o.release(sess.ID)
		return nil, nil, err
	}
	if _, err := o.store.AddMessage(ctx, sess.ID, session.RoleUser, session.TypeText, req.Input); err != nil {
		o.release(sess.ID)
		return nil, nil, err
	}

	state := &workflow.State{
		WorkflowID:           ids.NewWorkflowID(),
		TeamMembers:          roster,
		DeepThinking:         req.DeepThinking,
		SearchBeforePlanning: req.SearchBeforePlanning,
		Messages:             append(session.ConversationHistory(history), llm.Message{Role: "user", Content: req.Input}),
	}

	stream := events.NewStream()
	runCtx, cancel := context.WithTimeout(ctx, o.timeout)

	if err := stream.Emit(runCtx, events.NewSessionID(sess.ID)); err != nil {
		cancel()
		o.release(sess.ID)
		stream.Close()
		return nil, nil, err
	}

	go o.run(runCtx, cancel, sess, state, stream, req.Debug)

	return stream, sess, nil
}

func (o *Orchestrator) resolveSession(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return o.store.CreateSession(ctx, "")
	}
	return o.store.GetSession(ctx, id)
}

func (o *Orchestrator) acquire(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.active[sessionID]; busy {
		return false
	}
	o.active[sessionID] = struct{}{}
	return true
}

func (o *Orchestrator) release(sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, sessionID)
}

// run drives the engine to a terminal state and settles persistence. It owns
// the stream's lifetime.
func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, sess *session.Session, state *workflow.State, stream *events.Stream, debug bool) {
	defer stream.Close()
	defer o.release(sess.ID)
	defer cancel()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	start := time.Now()
	defer func() { metrics.RunDuration.Observe(time.Since(start).Seconds()) }()

	ctx = ids.WithSessionID(ctx, sess.ID)
	ctx = ids.WithWorkflowID(ctx, state.WorkflowID)

	baseline := len(state.Messages)
	projector := events.NewProjector(state.WorkflowID, state.UserInput(), state.TeamMembers, stream)
	engine := workflow.NewEngine(&workflow.Deps{
		Prompts:   o.prompts,
		Models:    o.models,
		Tools:     o.tools,
		Projector: projector,
		Debug:     debug,
	})

	if debug {
		o.logger.Info("Run %s starting (session %s, team %v, deep_thinking=%v)",
			state.WorkflowID, sess.ID, state.TeamMembers, state.DeepThinking)
	}

	err := engine.Run(ctx, state)

	switch {
	case err == nil:
		o.finishRun(sess, state, baseline, stream)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeCompleted).Inc()
	case stderrors.Is(ctx.Err(), context.DeadlineExceeded):
		// Timed out. The user turn stays; nothing else is persisted.
		o.logger.Warn("Run %s timed out after %s", state.WorkflowID, o.timeout)
		o.emitDetached(stream, events.NewError(state.WorkflowID, "workflow timed out"))
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeTimeout).Inc()
	case ctx.Err() != nil:
		// Client went away. Nothing beyond the user turn is persisted.
		o.logger.Info("Run %s cancelled", state.WorkflowID)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeCancelled).Inc()
	default:
		o.failRun(sess, state, err, stream)
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeFailed).Inc()
	}
}

// finishRun persists the run's outputs, snapshots the state, and emits the
// terminal events.
func (o *Orchestrator) finishRun(sess *session.Session, state *workflow.State, baseline int, stream *events.Stream) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	produced := state.Messages[baseline:]
	chat := make([]events.ChatMessage, 0, len(produced))
	for _, m := range produced {
		if err := o.persistMessage(ctx, sess.ID, m); err != nil {
			o.logger.Error("Persisting output of %s failed: %v", m.Name, err)
		}
		chat = append(chat, events.ChatMessage{Role: m.Role, Content: m.Content, Name: m.Name})
	}

	if snapshot, err := state.Snapshot(); err == nil {
		if err := o.store.UpdateState(ctx, sess.ID, snapshot); err != nil {
			o.logger.Error("Saving state snapshot for %s failed: %v", sess.ID, err)
		}
	}

	o.emitDetached(stream, events.NewEndOfWorkflow(state.WorkflowID, chat))
	if msgs, err := o.store.ListMessages(ctx, sess.ID); err == nil {
		o.emitDetached(stream, events.NewFinalSessionState(msgs))
	}
}

// failRun records the failure as an assistant turn so the conversation shows
// what happened, then emits the terminal error event.
func (o *Orchestrator) failRun(sess *session.Session, state *workflow.State, runErr error, stream *events.Stream) {
	o.logger.Error("Run %s failed: %v", state.WorkflowID, runErr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	detail := failureDetail(runErr)
	if _, err := o.store.AddMessage(ctx, sess.ID, session.RoleAssistant, session.TypeText, detail); err != nil {
		o.logger.Error("Persisting failure message for %s failed: %v", sess.ID, err)
	}
	if snapshot, err := state.Snapshot(); err == nil {
		if err := o.store.UpdateState(ctx, sess.ID, snapshot); err != nil {
			o.logger.Error("Saving state snapshot for %s failed: %v", sess.ID, err)
		}
	}

	o.emitDetached(stream, events.NewError(state.WorkflowID, detail))
}

// persistMessage maps a produced message to its storage form. Coordinator and
// reporter answers are plain dialogue; every other worker's output is a
// structured workflow artifact.
func (o *Orchestrator) persistMessage(ctx context.Context, sessionID string, m llm.Message) error {
	switch m.Name {
	case agent.Coordinator, agent.Reporter:
		_, err := o.store.AddMessage(ctx, sessionID, session.RoleAssistant, session.TypeText, m.Content)
		return err
	default:
		envelope, err := workflowEnvelope(m)
		if err != nil {
			return err
		}
		_, err = o.store.AddMessage(ctx, sessionID, session.RoleSystem, session.TypeWorkflow, envelope)
		return err
	}
}

// emitDetached pushes a terminal event without tying it to the (possibly
// already cancelled) run context.
func (o *Orchestrator) emitDetached(stream *events.Stream, ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := stream.Emit(ctx, ev); err != nil {
		o.logger.Warn("Dropping terminal %s event: %v", ev.Type, err)
	}
}

// failureDetail folds the error taxonomy into the user-facing failure text.
func failureDetail(err error) string {
	var runErr *workflow.RunError
	worker := "workflow"
	if stderrors.As(err, &runErr) {
		worker = runErr.Worker
	}
	switch {
	case errors.IsSchema(err):
		return fmt.Sprintf("The %s model returned output that could not be understood. Please try again.", worker)
	case errors.IsTransient(err):
		return fmt.Sprintf("The %s step hit a temporary upstream problem. Please try again.", worker)
	case errors.IsValidation(err):
		return fmt.Sprintf("The %s step rejected its input: %v", worker, err)
	default:
		return fmt.Sprintf("The %s step failed: %v", worker, err)
	}
}
