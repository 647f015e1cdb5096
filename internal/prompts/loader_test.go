package prompts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/agent"
	"medassist/internal/llm"
)

func TestNewLoaderCoversAllWorkers(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)
	for _, w := range agent.List() {
		content, err := loader.Render(w.Name, nil)
		require.NoError(t, err, w.Name)
		assert.NotEmpty(t, content)
	}
}

func TestRenderSubstitutesVariables(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	out, err := loader.Render(agent.Planner, map[string]string{
		"CURRENT_TIME": "Mon Jan 02 2006",
		"TEAM_MEMBERS": "- researcher",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Mon Jan 02 2006")
	assert.Contains(t, out, "- researcher")
	assert.NotContains(t, out, "{{CURRENT_TIME}}")
	assert.NotContains(t, out, "{{TEAM_MEMBERS}}")
}

func TestRenderUnknownTemplate(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)
	_, err = loader.Render("nosuch", nil)
	assert.Error(t, err)
}

func TestBindPrependsSystemMessage(t *testing.T) {
	loader, err := NewLoader()
	require.NoError(t, err)

	conversation := []llm.Message{{Role: "user", Content: "what is metformin?"}}
	msgs, err := loader.Bind(agent.Supervisor, BindContext{
		Now:         time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		TeamMembers: []string{agent.Researcher, agent.Reporter},
	}, conversation)
	require.NoError(t, err)

	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "`researcher`")
	assert.Contains(t, msgs[0].Content, "`reporter`")
	assert.NotContains(t, msgs[0].Content, "`coder`")
	assert.Equal(t, conversation[0], msgs[1])
}
