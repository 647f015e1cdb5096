package tools

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"medassist/internal/llm"
)

const (
	execTimeout   = 60 * time.Second
	maxExecOutput = 10000
)

// PythonExec runs a Python snippet in a subprocess.
type PythonExec struct{}

func NewPythonExec() *PythonExec { return &PythonExec{} }

func (t *PythonExec) Definition() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "python_exec",
		Description: "Execute a Python snippet and return its stdout and stderr. Print the values you want reported.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"code": {
					Type:        "string",
					Description: "The Python code to execute",
				},
			},
			Required: []string{"code"},
		},
	}
}

func (t *PythonExec) Execute(ctx context.Context, call Call) (*Result, error) {
	code := stringArg(call.Arguments, "code")
	if code == "" {
		return errorResult(call, "Error: code parameter required", fmt.Errorf("missing code")), nil
	}
	return runCommand(ctx, call, "python3", "-c", code)
}

// BashExec runs a shell command in a subprocess.
type BashExec struct{}

func NewBashExec() *BashExec { return &BashExec{} }

func (t *BashExec) Definition() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "bash_exec",
		Description: "Execute a shell command and return its stdout and stderr.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"command": {
					Type:        "string",
					Description: "The shell command to execute",
				},
			},
			Required: []string{"command"},
		},
	}
}

func (t *BashExec) Execute(ctx context.Context, call Call) (*Result, error) {
	command := stringArg(call.Arguments, "command")
	if command == "" {
		return errorResult(call, "Error: command parameter required", fmt.Errorf("missing command")), nil
	}
	return runCommand(ctx, call, "bash", "-c", command)
}

func runCommand(ctx context.Context, call Call, name string, args ...string) (*Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var output strings.Builder
	if out := strings.TrimSpace(stdout.String()); out != "" {
		output.WriteString(truncateOutput(out))
	}
	if errOut := strings.TrimSpace(stderr.String()); errOut != "" {
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		output.WriteString("stderr:\n")
		output.WriteString(truncateOutput(errOut))
	}

	if runErr != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			runErr = fmt.Errorf("execution timed out after %s", execTimeout)
		}
		if output.Len() > 0 {
			output.WriteString("\n")
		}
		fmt.Fprintf(&output, "Error: %v", runErr)
		return &Result{CallID: call.ID, Content: output.String(), Error: runErr}, nil
	}
	if output.Len() == 0 {
		output.WriteString("(no output)")
	}
	return &Result{CallID: call.ID, Content: output.String()}, nil
}

func truncateOutput(s string) string {
	if len(s) > maxExecOutput {
		return s[:maxExecOutput] + "\n[output truncated]"
	}
	return s
}
