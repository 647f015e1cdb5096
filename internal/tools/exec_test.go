package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBashExec(t *testing.T) {
	res, err := NewBashExec().Execute(context.Background(), Call{
		ID:        "c1",
		Arguments: map[string]any{"command": "echo 42"},
	})
	require.NoError(t, err)
	require.NoError(t, res.Error)
	assert.Equal(t, "42", res.Content)
}

func TestBashExecCapturesStderrAndFailure(t *testing.T) {
	res, err := NewBashExec().Execute(context.Background(), Call{
		ID:        "c1",
		Arguments: map[string]any{"command": "echo oops >&2; exit 3"},
	})
	require.NoError(t, err)
	assert.Error(t, res.Error)
	assert.Contains(t, res.Content, "oops")
	assert.Contains(t, res.Content, "exit status 3")
}

func TestBashExecMissingCommand(t *testing.T) {
	res, err := NewBashExec().Execute(context.Background(), Call{ID: "c1", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.Error(t, res.Error)
}

func TestPythonExecMissingCode(t *testing.T) {
	res, err := NewPythonExec().Execute(context.Background(), Call{ID: "c1", Arguments: map[string]any{}})
	require.NoError(t, err)
	assert.Error(t, res.Error)
}
