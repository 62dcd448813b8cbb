// Package narrative turns a decoded outcome table into an analyst-style
// report. It supports Anthropic, OpenAI-compatible (including Ollama) and
// Gemini backends, plus a rule-based fallback that needs no network.
package narrative

import (
	"context"
	"errors"
	"time"

	"github.com/agrioracle/agri-oracle/internal/config"
	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/models"
)

// ErrUnavailable is returned when a generator is asked to narrate without
// the credentials or endpoint it needs.
var ErrUnavailable = errors.New("narrative generator not available")

// Briefing is everything a generator sees about one run.
type Briefing struct {
	// Event is the scenario title, usually the selected shock name(s).
	Event string `json:"event"`

	// Description is optional free text supplied with a scenario.
	Description string `json:"description,omitempty"`

	// Initial is the starting condition the network was built from.
	Initial models.InitialCondition `json:"initial"`

	// Table is the decoded result. Must be non-nil.
	Table *decoder.OutcomeTable `json:"table"`
}

// Generator produces a narrative for a briefing.
type Generator interface {
	// Narrate returns the generated report text. Transport and auth errors
	// are returned as-is; generators do not retry.
	Narrate(ctx context.Context, b Briefing) (string, error)

	// Available returns true if the generator is configured and ready.
	// For API-based generators this checks that credentials are present.
	Available() bool
}

// ClientConfig configures an API-backed generator.
type ClientConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func (c ClientConfig) timeout() time.Duration {
	if c.Timeout == 0 {
		return 30 * time.Second
	}
	return c.Timeout
}

// NewFromConfig selects a generator from configuration. It returns nil when
// narration is disabled and no rule-based fallback is wanted. A configured
// provider that is missing credentials is replaced by the fallback when
// FallbackToRules is set.
func NewFromConfig(cfg config.LLMConfig) Generator {
	cc := ClientConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	}

	var gen Generator
	if cfg.Enabled {
		switch cfg.Provider {
		case "anthropic":
			gen = NewAnthropicClient(cc)
		case "openai":
			gen = NewOpenAIClient(cc)
		case "ollama":
			gen = NewOllamaClient(cc)
		case "gemini":
			gen = NewGeminiClient(cc)
		}
	}

	if gen != nil && gen.Available() {
		return gen
	}
	if cfg.FallbackToRules {
		return NewFallbackGenerator()
	}
	return gen
}
