package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"medassist/internal/errors"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/metrics"
)

// Registry holds the registered tools and dispatches calls to them.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
	retry  errors.RetryConfig
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools:  make(map[string]Tool),
		logger: logging.NewComponentLogger("Tools"),
		retry: errors.RetryConfig{
			MaxAttempts:  2,
			BaseDelay:    500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			JitterFactor: 0.25,
		},
	}
}

// Register adds a tool, replacing any previous tool of the same name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Definition().Name
	if _, exists := r.tools[name]; exists {
		r.logger.Warn("Replacing already registered tool %q", name)
	}
	r.tools[name] = t
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names lists registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SchemasFor returns the tool schemas for the named tools, skipping any that
// are not registered.
func (r *Registry) SchemasFor(names []string) []llm.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []llm.ToolSchema
	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			out = append(out, t.Definition())
		}
	}
	return out
}

// Execute dispatches a call to the named tool. Transient failures (network,
// timeout, 5xx) are retried with bounded backoff; everything else surfaces on
// the first attempt. An unknown tool yields a Result describing the failure
// rather than an error, so the model sees it.
func (r *Registry) Execute(ctx context.Context, name string, call Call) (*Result, error) {
	t, ok := r.Get(name)
	if !ok {
		err := fmt.Errorf("unknown tool %q", name)
		return errorResult(call, fmt.Sprintf("Error: %v", err), err), nil
	}
	r.logger.Debug("Executing tool %s (call %s)", name, call.ID)

	var lastResult *Result
	result, err := errors.RetryWithResultAndLog(ctx, r.retry, func(ctx context.Context) (*Result, error) {
		res, execErr := t.Execute(ctx, call)
		if execErr != nil {
			return nil, execErr
		}
		lastResult = res
		if res != nil && errors.IsTransient(res.Error) {
			return nil, res.Error
		}
		return res, nil
	}, r.logger)
	if err != nil && lastResult != nil {
		// Retries exhausted; hand the model the in-band failure text.
		result, err = lastResult, nil
	}

	status := "ok"
	switch {
	case err != nil:
		status = "error"
	case result != nil && result.Error != nil:
		status = "failed"
	}
	metrics.ToolCallsTotal.WithLabelValues(name, status).Inc()

	return result, err
}
