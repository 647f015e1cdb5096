package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.AllowedOrigins)
	assert.Equal(t, "sqlite://medassist.db", cfg.DatabaseURL)
	assert.Equal(t, 10*time.Minute, cfg.WorkflowTimeout)
	assert.Equal(t, 5, cfg.TavilyMaxResults)
	assert.True(t, cfg.ChromeHeadless)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BASIC_MODEL", "gpt-4o-mini")
	t.Setenv("BASIC_BASE_URL", "https://example.test/v1")
	t.Setenv("SERVER_ALLOWED_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("WORKFLOW_TIMEOUT", "90s")
	t.Setenv("BROWSER_USE_TEXT_ONLY", "yes")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", cfg.Basic.Model)
	assert.Equal(t, "https://example.test/v1", cfg.Basic.BaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, 90*time.Second, cfg.WorkflowTimeout)
	assert.True(t, cfg.BrowserTextOnly)
}

func TestParseBool(t *testing.T) {
	for _, truthy := range []string{"true", "1", "yes", "Y", " TRUE "} {
		assert.True(t, parseBool(truthy), truthy)
	}
	for _, falsy := range []string{"", "false", "0", "no", "maybe"} {
		assert.False(t, parseBool(falsy), falsy)
	}
}
