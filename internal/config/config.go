// Package config provides unified configuration loading for the oracle.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/network"
	"github.com/agrioracle/agri-oracle/internal/sampler"
	"gopkg.in/yaml.v3"
)

// OracleConfig contains all oracle configuration settings.
type OracleConfig struct {
	// Simulation controls sampling.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Model holds the correlation network parameters.
	Model network.Params `json:"model" yaml:"model"`

	// History configures the historical reference table.
	History HistoryConfig `json:"history" yaml:"history"`

	// LLM contains settings for narrative generation.
	LLM LLMConfig `json:"llm" yaml:"llm"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Server configures the websocket UI transport.
	Server ServerConfig `json:"server" yaml:"server"`
}

// SimulationConfig configures the sampler and decoder.
type SimulationConfig struct {
	// Shots is the number of samples drawn per run.
	Shots int `json:"shots" yaml:"shots"`

	// Workers is the number of sampling goroutines (0 = GOMAXPROCS).
	Workers int `json:"workers" yaml:"workers"`

	// Seed fixes the random stream (0 = fresh seed per run).
	Seed uint64 `json:"seed" yaml:"seed"`

	// Order is the outcome ordering: "first-seen" (default) or "probability".
	Order string `json:"order" yaml:"order"`
}

// HistoryConfig configures how historical records become initial conditions.
type HistoryConfig struct {
	// RainfallThresholdMM is the annual rainfall below which the monsoon
	// counts as disrupted.
	RainfallThresholdMM float64 `json:"rainfall_threshold_mm" yaml:"rainfall_threshold_mm"`
}

// LoggingConfig configures logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables decision logging to .oracle/decisions.jsonl.
	// "trace" additionally includes full prompt/response content.
	Level string `json:"level" yaml:"level"`
}

// ServerConfig configures the websocket server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `json:"addr" yaml:"addr"`

	// MaxShots caps the shot count a remote client may request.
	MaxShots int `json:"max_shots" yaml:"max_shots"`
}

// LLMConfig configures the narrative generator.
type LLMConfig struct {
	// Provider identifies the backend: "anthropic", "openai", "ollama", "gemini", or "" for disabled.
	Provider string `json:"provider" yaml:"provider"`

	// APIKey is the API key for the provider. Supports ${VAR} syntax for env vars.
	// Not required for ollama.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL is the API endpoint URL. Used for ollama or custom OpenAI-compatible endpoints.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// Model is the model used for narrative generation.
	Model string `json:"model,omitempty" yaml:"model,omitempty"`

	// Timeout is the maximum duration to wait for a response.
	Timeout time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty"`

	// Enabled indicates whether narrative generation is enabled.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// FallbackToRules indicates whether a rule-based summary is used when no
	// provider is configured.
	FallbackToRules bool `json:"fallback_to_rules" yaml:"fallback_to_rules"`
}

// RedactedAPIKey returns the API key with most characters masked.
// Shows first 4 and last 4 characters, e.g., "sk-a...xyz9".
// Returns "" for empty keys and "(set)" for keys shorter than 12 chars.
func (c LLMConfig) RedactedAPIKey() string {
	if c.APIKey == "" {
		return ""
	}
	if len(c.APIKey) < 12 {
		return "(set)"
	}
	return c.APIKey[:4] + "..." + c.APIKey[len(c.APIKey)-4:]
}

// String implements fmt.Stringer to prevent accidental API key logging.
func (c LLMConfig) String() string {
	return fmt.Sprintf("LLMConfig{Provider:%s, Enabled:%t, APIKey:%s, Model:%s}",
		c.Provider, c.Enabled, c.RedactedAPIKey(), c.Model)
}

// Default returns an OracleConfig with sensible defaults.
func Default() *OracleConfig {
	return &OracleConfig{
		Simulation: SimulationConfig{
			Shots:   sampler.DefaultShots,
			Workers: 0,
			Seed:    0,
			Order:   string(decoder.OrderFirstSeen),
		},
		Model: network.DefaultParams(),
		History: HistoryConfig{
			RainfallThresholdMM: 1000,
		},
		LLM: LLMConfig{
			Provider:        "",
			Timeout:         30 * time.Second,
			Enabled:         false,
			FallbackToRules: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Server: ServerConfig{
			Addr:     "127.0.0.1:8765",
			MaxShots: 100000,
		},
	}
}

// Dir returns the global oracle directory (~/.oracle).
func Dir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".oracle"), nil
}

// Path returns the default config file path (~/.oracle/config.yaml).
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.oracle/config.yaml -> environment variables
func Load() (*OracleConfig, error) {
	config := Default()

	configPath, err := Path()
	if err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*OracleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.LLM.APIKey = expandEnvVars(config.LLM.APIKey)

	return config, nil
}

// Save writes the configuration to path as YAML, creating parent directories.
func (c *OracleConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

// Validate checks that the configuration is valid.
func (c *OracleConfig) Validate() error {
	if c.Simulation.Shots <= 0 {
		return fmt.Errorf("shots must be positive, got %d", c.Simulation.Shots)
	}

	if c.Simulation.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Simulation.Workers)
	}

	if _, err := decoder.ParseOrder(c.Simulation.Order); err != nil {
		return err
	}

	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("model: %w", err)
	}

	if c.History.RainfallThresholdMM <= 0 {
		return fmt.Errorf("rainfall_threshold_mm must be positive, got %f", c.History.RainfallThresholdMM)
	}

	if c.LLM.Timeout < 0 {
		return fmt.Errorf("timeout must be non-negative, got %v", c.LLM.Timeout)
	}

	validProviders := map[string]bool{"": true, "anthropic": true, "openai": true, "ollama": true, "gemini": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid provider: %s (valid: anthropic, openai, ollama, gemini, or empty)", c.LLM.Provider)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	if c.Server.MaxShots < 0 {
		return fmt.Errorf("max_shots must be non-negative, got %d", c.Server.MaxShots)
	}

	return nil
}

// NetworkParams returns the parameters handed to the network builder.
func (c *OracleConfig) NetworkParams() network.Params {
	return c.Model
}

// SamplerConfig returns the configuration handed to the sampler.
func (c *OracleConfig) SamplerConfig() sampler.Config {
	return sampler.Config{
		Workers: c.Simulation.Workers,
		Seed:    c.Simulation.Seed,
	}
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *OracleConfig) {
	if v := os.Getenv("ORACLE_SHOTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Shots = n
		}
	}
	if v := os.Getenv("ORACLE_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Simulation.Workers = n
		}
	}
	if v := os.Getenv("ORACLE_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Simulation.Seed = n
		}
	}
	if v := os.Getenv("ORACLE_ORDER"); v != "" {
		config.Simulation.Order = v
	}

	if v := os.Getenv("ORACLE_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}

	if v := os.Getenv("ORACLE_LLM_ENABLED"); v != "" {
		config.LLM.Enabled = v == "true" || v == "1"
	}

	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" && config.LLM.Provider == "anthropic" {
		config.LLM.APIKey = v
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" && config.LLM.Provider == "openai" {
		config.LLM.APIKey = v
	}

	if v := os.Getenv("GEMINI_API_KEY"); v != "" && config.LLM.Provider == "gemini" {
		config.LLM.APIKey = v
	}

	// Ollama uses OLLAMA_HOST for base URL (no API key needed)
	if config.LLM.Provider == "ollama" {
		if v := os.Getenv("OLLAMA_HOST"); v != "" {
			config.LLM.BaseURL = v
		} else if config.LLM.BaseURL == "" {
			config.LLM.BaseURL = "http://localhost:11434/v1"
		}
	}

	if v := os.Getenv("ORACLE_RAINFALL_THRESHOLD_MM"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.History.RainfallThresholdMM = f
		}
	}

	if v := os.Getenv("ORACLE_SERVER_ADDR"); v != "" {
		config.Server.Addr = v
	}

	if v := os.Getenv("ORACLE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
