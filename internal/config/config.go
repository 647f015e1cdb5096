// Package config loads process configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// ModelConfig holds the credentials for one LLM class.
type ModelConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Config is the full server configuration.
type Config struct {
	Port           string
	AllowedOrigins []string

	// LLM credentials per class.
	Basic     ModelConfig
	Reasoning ModelConfig
	Vision    ModelConfig

	// Search tool.
	TavilyAPIKey     string
	TavilyMaxResults int

	// Browser driver.
	ChromeInstancePath  string
	ChromeHeadless      bool
	ChromeProxyServer   string
	ChromeProxyUsername string
	ChromeProxyPassword string
	BrowserTextOnly     bool
	BrowserHistoryDir   string
	BrowserPoolSize     int

	// Storage.
	DatabaseURL string

	// Run limits.
	WorkflowTimeout time.Duration

	LogLevel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is merged in first when present (missing file is not an error).
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("TAVILY_MAX_RESULTS", 5)
	v.SetDefault("CHROME_HEADLESS", true)
	v.SetDefault("BROWSER_HISTORY_DIR", "browser_history")
	v.SetDefault("BROWSER_POOL_SIZE", 4)
	v.SetDefault("DATABASE_URL", "sqlite://medassist.db")
	v.SetDefault("WORKFLOW_TIMEOUT", "10m")
	v.SetDefault("LOG_LEVEL", "info")

	timeout, err := time.ParseDuration(v.GetString("WORKFLOW_TIMEOUT"))
	if err != nil {
		timeout = 10 * time.Minute
	}

	cfg := &Config{
		Port:           v.GetString("PORT"),
		AllowedOrigins: splitList(v.GetString("SERVER_ALLOWED_ORIGINS")),
		Basic: ModelConfig{
			APIKey:  v.GetString("BASIC_API_KEY"),
			Model:   v.GetString("BASIC_MODEL"),
			BaseURL: v.GetString("BASIC_BASE_URL"),
		},
		Reasoning: ModelConfig{
			APIKey:  v.GetString("REASONING_API_KEY"),
			Model:   v.GetString("REASONING_MODEL"),
			BaseURL: v.GetString("REASONING_BASE_URL"),
		},
		Vision: ModelConfig{
			APIKey:  v.GetString("VL_API_KEY"),
			Model:   v.GetString("VL_MODEL"),
			BaseURL: v.GetString("VL_BASE_URL"),
		},
		TavilyAPIKey:        v.GetString("TAVILY_API_KEY"),
		TavilyMaxResults:    v.GetInt("TAVILY_MAX_RESULTS"),
		ChromeInstancePath:  v.GetString("CHROME_INSTANCE_PATH"),
		ChromeHeadless:      v.GetBool("CHROME_HEADLESS"),
		ChromeProxyServer:   v.GetString("CHROME_PROXY_SERVER"),
		ChromeProxyUsername: v.GetString("CHROME_PROXY_USERNAME"),
		ChromeProxyPassword: v.GetString("CHROME_PROXY_PASSWORD"),
		BrowserTextOnly:     parseBool(v.GetString("BROWSER_USE_TEXT_ONLY")),
		BrowserHistoryDir:   v.GetString("BROWSER_HISTORY_DIR"),
		BrowserPoolSize:     v.GetInt("BROWSER_POOL_SIZE"),
		DatabaseURL:         v.GetString("DATABASE_URL"),
		WorkflowTimeout:     timeout,
		LogLevel:            v.GetString("LOG_LEVEL"),
	}

	return cfg, nil
}

// splitList parses a comma-separated list, trimming whitespace.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parseBool accepts the loose truthy spellings the original deployment used
// (true/1/yes/y), not just strconv.ParseBool's set.
func parseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "1", "yes", "y":
		return true
	default:
		return false
	}
}
