// Package prompts embeds the per-worker system prompt templates and renders
// them with run context.
package prompts

import (
	"embed"
	"fmt"
	"strings"
	"time"

	"medassist/internal/agent"
	"medassist/internal/llm"
)

//go:embed *.md
var promptFS embed.FS

// Loader holds the parsed prompt templates.
type Loader struct {
	templates map[string]string
}

// NewLoader reads every embedded template. Fails if a registered worker has
// no template.
func NewLoader() (*Loader, error) {
	loader := &Loader{templates: make(map[string]string)}

	entries, err := promptFS.ReadDir(".")
	if err != nil {
		return nil, fmt.Errorf("read prompts directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		content, err := promptFS.ReadFile(entry.Name())
		if err != nil {
			return nil, fmt.Errorf("read prompt %s: %w", entry.Name(), err)
		}
		loader.templates[strings.TrimSuffix(entry.Name(), ".md")] = string(content)
	}

	for _, w := range agent.List() {
		if _, ok := loader.templates[w.Name]; !ok {
			return nil, fmt.Errorf("missing prompt template for worker %q", w.Name)
		}
	}
	return loader, nil
}

// Render substitutes {{KEY}} placeholders in the named template.
func (l *Loader) Render(name string, variables map[string]string) (string, error) {
	content, ok := l.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}
	for key, value := range variables {
		content = strings.ReplaceAll(content, "{{"+key+"}}", value)
	}
	return content, nil
}

// BindContext carries the per-run variables every template may reference.
type BindContext struct {
	Now         time.Time
	TeamMembers []string
}

// Bind renders the worker's system prompt and prepends it to the conversation.
func (l *Loader) Bind(worker string, bindCtx BindContext, conversation []llm.Message) ([]llm.Message, error) {
	now := bindCtx.Now
	if now.IsZero() {
		now = time.Now()
	}
	system, err := l.Render(worker, map[string]string{
		"CURRENT_TIME": now.Format("Mon Jan 02 2006 15:04:05 MST"),
		"TEAM_MEMBERS": formatTeamMembers(bindCtx.TeamMembers),
	})
	if err != nil {
		return nil, err
	}

	out := make([]llm.Message, 0, len(conversation)+1)
	out = append(out, llm.Message{Role: "system", Content: system})
	out = append(out, conversation...)
	return out, nil
}

// formatTeamMembers renders the roster as a markdown list with the
// LLM-facing description of each member.
func formatTeamMembers(members []string) string {
	var b strings.Builder
	for _, name := range members {
		w, ok := agent.Get(name)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "- **`%s`**: %s\n", w.Name, w.DescForLLM)
	}
	return strings.TrimRight(b.String(), "\n")
}
