// Package tools provides the worker-facing tool implementations: web search,
// page crawling, medical abstract search, code execution, and browsing.
package tools

import (
	"context"

	"medassist/internal/llm"
)

// Call is one tool invocation requested by a model. OnProgress, when set,
// receives interim status lines from long-running tools.
type Call struct {
	ID         string
	Arguments  map[string]any
	OnProgress func(message string)
}

// Progress reports an interim status line to the caller, if anyone listens.
func (c Call) Progress(message string) {
	if c.OnProgress != nil {
		c.OnProgress(message)
	}
}

// Result is the outcome of a tool call. Tool-level failures are reported in
// Content so the model can react; Error is set alongside for logging.
type Result struct {
	CallID   string
	Content  string
	Error    error
	Metadata map[string]any
}

// Tool is a capability a worker can invoke.
type Tool interface {
	Definition() llm.ToolSchema
	Execute(ctx context.Context, call Call) (*Result, error)
}

func errorResult(call Call, content string, err error) *Result {
	return &Result{CallID: call.ID, Content: content, Error: err}
}

func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func intArg(args map[string]any, key string, def, min, max int) int {
	f, ok := args[key].(float64)
	if !ok {
		return def
	}
	n := int(f)
	if n < min {
		n = min
	}
	if n > max {
		n = max
	}
	return n
}
