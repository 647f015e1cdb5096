package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"medassist/internal/ids"
	"medassist/internal/llm"
	"medassist/internal/logging"
	"medassist/internal/tools/browser"
)

const (
	maxBrowserSteps  = 8
	maxPageStateText = 4000
)

// BrowserTool performs a natural-language browsing task by letting a model
// drive a pooled Chrome session one action at a time.
type BrowserTool struct {
	manager *browser.Manager
	client  llm.Client
	logger  logging.Logger
}

func NewBrowserTool(manager *browser.Manager, client llm.Client) *BrowserTool {
	return &BrowserTool{
		manager: manager,
		client:  client,
		logger:  logging.NewComponentLogger("Browser"),
	}
}

func (t *BrowserTool) Definition() llm.ToolSchema {
	return llm.ToolSchema{
		Name:        "browser",
		Description: "Perform a browsing task described in natural language: navigate, click, type, and extract page content.",
		Parameters: llm.ParameterSchema{
			Type: "object",
			Properties: map[string]llm.Property{
				"instruction": {
					Type:        "string",
					Description: "The browsing task to perform, e.g. 'visit clinicaltrials.gov and search for metformin trials'",
				},
			},
			Required: []string{"instruction"},
		},
	}
}

// browserAction is the single next step chosen by the driving model.
type browserAction struct {
	Action   string `json:"action"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector,omitempty"`
	Text     string `json:"text,omitempty"`
	Result   string `json:"result,omitempty"`
}

const browserDriverPrompt = `You are driving a web browser to complete this task:

%s

Actions taken so far:
%s

Current page:
URL: %s
Title: %s
Visible text (truncated):
%s

Choose the single next action. Respond with ONLY a JSON object:
{"action": "navigate", "url": "https://..."}
{"action": "click", "selector": "css selector"}
{"action": "type", "selector": "css selector", "text": "..."}
{"action": "scroll"}
{"action": "finish", "result": "what you found, answering the task"}

Use "finish" as soon as the task is complete or clearly impossible.`

func (t *BrowserTool) Execute(ctx context.Context, call Call) (*Result, error) {
	instruction := stringArg(call.Arguments, "instruction")
	if instruction == "" {
		return errorResult(call, "Error: instruction parameter required", fmt.Errorf("missing instruction")), nil
	}

	sess, err := t.manager.Acquire(ctx)
	if err != nil {
		return errorResult(call, fmt.Sprintf("Error: browser unavailable: %v", err), err), nil
	}
	defer sess.Release()

	var history []string
	var finalResult string

	for step := 0; step < maxBrowserSteps; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, err := sess.Observe(ctx)
		if err != nil {
			t.logger.Debug("Observe failed: %v", err)
		}
		text := state.Text
		if len(text) > maxPageStateText {
			text = text[:maxPageStateText] + "\n[truncated]"
		}

		historyText := "(none)"
		if len(history) > 0 {
			historyText = strings.Join(history, "\n")
		}
		prompt := fmt.Sprintf(browserDriverPrompt, instruction, historyText, state.URL, state.Title, text)

		action, _, err := llm.InvokeStructured[browserAction](ctx, t.client, llm.CompletionRequest{
			Messages: []llm.Message{{Role: "user", Content: prompt}},
		})
		if err != nil {
			return errorResult(call, fmt.Sprintf("Error: browser driver failed: %v", err), err), nil
		}

		if action.Action == "finish" {
			finalResult = action.Result
			break
		}
		call.Progress(fmt.Sprintf("Browser step %d: %s", step+1, describeAction(*action)))
		if err := t.apply(ctx, sess, *action); err != nil {
			history = append(history, fmt.Sprintf("%d. %s FAILED: %v", step+1, describeAction(*action), err))
			continue
		}
		history = append(history, fmt.Sprintf("%d. %s", step+1, describeAction(*action)))
		sess.CaptureFrame(ctx)
	}

	traceName, err := sess.SaveTrace(time.Now().UTC().Format("20060102T150405") + "_" + ids.NewMessageID()[:8])
	if err != nil {
		t.logger.Warn("Failed to save browsing trace: %v", err)
	}

	if finalResult == "" {
		finalResult = "The browsing task did not complete within the step limit. Actions taken:\n" + strings.Join(history, "\n")
	}

	result := &Result{CallID: call.ID, Content: finalResult}
	if traceName != "" {
		result.Metadata = map[string]any{"generated_gif_filename": traceName}
	}
	return result, nil
}

func (t *BrowserTool) apply(ctx context.Context, sess *browser.Session, action browserAction) error {
	switch action.Action {
	case "navigate":
		if action.URL == "" {
			return fmt.Errorf("navigate requires url")
		}
		return sess.Navigate(ctx, action.URL)
	case "click":
		if action.Selector == "" {
			return fmt.Errorf("click requires selector")
		}
		return sess.Click(ctx, action.Selector)
	case "type":
		if action.Selector == "" {
			return fmt.Errorf("type requires selector")
		}
		return sess.Type(ctx, action.Selector, action.Text)
	case "scroll":
		return sess.Scroll(ctx)
	default:
		return fmt.Errorf("unknown action %q", action.Action)
	}
}

func describeAction(a browserAction) string {
	switch a.Action {
	case "navigate":
		return "navigate to " + a.URL
	case "click":
		return "click " + a.Selector
	case "type":
		return fmt.Sprintf("type %q into %s", a.Text, a.Selector)
	default:
		return a.Action
	}
}
