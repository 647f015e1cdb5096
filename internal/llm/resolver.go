package llm

import (
	"fmt"

	"medassist/internal/config"
	"medassist/internal/errors"
)

// Resolver maps a model class to a configured client. Construction is eager
// so misconfiguration surfaces at startup rather than mid-run.
type Resolver struct {
	clients map[Class]Client
}

// NewResolver builds one client per configured model class. The basic class
// is required; reasoning and vision fall back to basic when not configured.
func NewResolver(cfg *config.Config) (*Resolver, error) {
	if cfg.Basic.Model == "" {
		return nil, errors.NewValidationError("BASIC_MODEL", "must be set")
	}

	basic := NewOpenAIClient(cfg.Basic.Model, cfg.Basic.BaseURL, cfg.Basic.APIKey)
	clients := map[Class]Client{
		ClassBasic:     basic,
		ClassReasoning: basic,
		ClassVision:    basic,
	}
	if cfg.Reasoning.Model != "" {
		clients[ClassReasoning] = NewOpenAIClient(cfg.Reasoning.Model, cfg.Reasoning.BaseURL, cfg.Reasoning.APIKey)
	}
	if cfg.Vision.Model != "" {
		clients[ClassVision] = NewOpenAIClient(cfg.Vision.Model, cfg.Vision.BaseURL, cfg.Vision.APIKey)
	}
	return &Resolver{clients: clients}, nil
}

// NewResolverFromClients wires explicit clients, used by tests.
func NewResolverFromClients(clients map[Class]Client) *Resolver {
	return &Resolver{clients: clients}
}

// ClientFor returns the client for a class.
func (r *Resolver) ClientFor(class Class) (Client, error) {
	c, ok := r.clients[class]
	if !ok {
		return nil, fmt.Errorf("no client configured for class %q", class)
	}
	return c, nil
}

// Select applies the run-level selection policy: deep-thinking mode upgrades
// basic-class calls to the reasoning model. Vision stays vision.
func (r *Resolver) Select(class Class, deepThinking bool) (Client, error) {
	if deepThinking && class == ClassBasic {
		class = ClassReasoning
	}
	return r.ClientFor(class)
}
