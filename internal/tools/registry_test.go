package tools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/errors"
	"medassist/internal/llm"
)

type fakeTool struct {
	name    string
	content string
}

func (f *fakeTool) Definition() llm.ToolSchema {
	return llm.ToolSchema{Name: f.name, Description: "fake", Parameters: llm.ParameterSchema{Type: "object"}}
}

func (f *fakeTool) Execute(_ context.Context, call Call) (*Result, error) {
	return &Result{CallID: call.ID, Content: f.content}, nil
}

func TestRegistryRegisterAndExecute(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "alpha", content: "a"})
	reg.Register(&fakeTool{name: "beta", content: "b"})

	assert.Equal(t, []string{"alpha", "beta"}, reg.Names())

	res, err := reg.Execute(context.Background(), "alpha", Call{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Content)
	assert.Equal(t, "c1", res.CallID)
}

func TestRegistryUnknownToolReportsInResult(t *testing.T) {
	reg := NewRegistry()
	res, err := reg.Execute(context.Background(), "nosuch", Call{ID: "c1"})
	require.NoError(t, err)
	assert.Error(t, res.Error)
	assert.Contains(t, res.Content, "nosuch")
}

func TestSchemasForSkipsUnregistered(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&fakeTool{name: "alpha"})
	schemas := reg.SchemasFor([]string{"alpha", "missing"})
	require.Len(t, schemas, 1)
	assert.Equal(t, "alpha", schemas[0].Name)
}

type flakyTool struct {
	name     string
	failures int
	attempts int
}

func (f *flakyTool) Definition() llm.ToolSchema {
	return llm.ToolSchema{Name: f.name, Description: "flaky", Parameters: llm.ParameterSchema{Type: "object"}}
}

func (f *flakyTool) Execute(_ context.Context, call Call) (*Result, error) {
	f.attempts++
	if f.attempts <= f.failures {
		err := errors.NewTransientError(fmt.Errorf("attempt %d failed", f.attempts), "upstream unavailable")
		return &Result{CallID: call.ID, Content: "Error: upstream unavailable", Error: err}, nil
	}
	return &Result{CallID: call.ID, Content: "ok"}, nil
}

type brokenTool struct {
	name     string
	attempts int
}

func (b *brokenTool) Definition() llm.ToolSchema {
	return llm.ToolSchema{Name: b.name, Description: "broken", Parameters: llm.ParameterSchema{Type: "object"}}
}

func (b *brokenTool) Execute(_ context.Context, call Call) (*Result, error) {
	b.attempts++
	err := errors.NewPermanentError(fmt.Errorf("bad request"), "argument rejected")
	return &Result{CallID: call.ID, Content: "Error: argument rejected", Error: err}, nil
}

func fastRetry(attempts int) errors.RetryConfig {
	return errors.RetryConfig{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, JitterFactor: 0}
}

func TestRegistryRetriesTransientFailure(t *testing.T) {
	reg := NewRegistry()
	reg.retry = fastRetry(2)
	tool := &flakyTool{name: "search", failures: 1}
	reg.Register(tool)

	res, err := reg.Execute(context.Background(), "search", Call{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 2, tool.attempts)
	assert.NoError(t, res.Error)
	assert.Equal(t, "ok", res.Content)
}

func TestRegistryDoesNotRetryPermanentFailure(t *testing.T) {
	reg := NewRegistry()
	reg.retry = fastRetry(2)
	tool := &brokenTool{name: "search"}
	reg.Register(tool)

	res, err := reg.Execute(context.Background(), "search", Call{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 1, tool.attempts)
	assert.Error(t, res.Error)
	assert.Contains(t, res.Content, "argument rejected")
}

func TestRegistryExhaustedRetriesReturnLastResult(t *testing.T) {
	reg := NewRegistry()
	reg.retry = fastRetry(2)
	tool := &flakyTool{name: "search", failures: 10}
	reg.Register(tool)

	res, err := reg.Execute(context.Background(), "search", Call{ID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, 3, tool.attempts)
	require.NotNil(t, res)
	assert.Error(t, res.Error)
	assert.Contains(t, res.Content, "upstream unavailable")
}
