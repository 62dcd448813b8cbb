package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage oracle configuration",
		Long: `View and modify oracle configuration settings.

Configuration is stored in ~/.oracle/config.yaml.

Examples:
  oracle config list                            # Show all settings
  oracle config get simulation.shots            # Get a specific setting
  oracle config set simulation.order probability
  oracle config set llm.provider gemini
  oracle config set llm.api_key '${GEMINI_API_KEY}'`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				// Redact API key before JSON serialization to prevent leakage
				redacted := *cfg
				redacted.LLM.APIKey = cfg.LLM.RedactedAPIKey()
				return json.NewEncoder(out).Encode(redacted)
			}

			fmt.Fprintln(out, "Configuration (~/.oracle/config.yaml):")
			for _, section := range configSections {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "%s:\n", section.title)
				for _, key := range section.keys {
					value, _ := getConfigValue(cfg, key)
					fmt.Fprintf(out, "  %-28s %v\n", key+":", displayValue(value))
				}
			}
			return nil
		},
	}
}

var configSections = []struct {
	title string
	keys  []string
}{
	{"Simulation", []string{"simulation.shots", "simulation.workers", "simulation.seed", "simulation.order"}},
	{"Model", []string{"model.disrupted_prior", "model.normal_prior", "model.high_prior", "model.standard_prior", "model.coupling"}},
	{"History", []string{"history.rainfall_threshold_mm"}},
	{"LLM", []string{"llm.provider", "llm.enabled", "llm.api_key", "llm.base_url", "llm.model", "llm.timeout", "llm.fallback_to_rules"}},
	{"Logging", []string{"logging.level"}},
	{"Server", []string{"server.addr", "server.max_shots"}},
}

func displayValue(v interface{}) interface{} {
	if s, ok := v.(string); ok && s == "" {
		return "(not set)"
	}
	return v
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %v\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid value for %s: %w", key, err)
			}

			path, err := config.Path()
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.OracleConfig, key string) (interface{}, bool) {
	switch key {
	case "simulation.shots":
		return cfg.Simulation.Shots, true
	case "simulation.workers":
		return cfg.Simulation.Workers, true
	case "simulation.seed":
		return cfg.Simulation.Seed, true
	case "simulation.order":
		return cfg.Simulation.Order, true
	case "model.disrupted_prior":
		return cfg.Model.DisruptedPrior, true
	case "model.normal_prior":
		return cfg.Model.NormalPrior, true
	case "model.high_prior":
		return cfg.Model.HighPrior, true
	case "model.standard_prior":
		return cfg.Model.StandardPrior, true
	case "model.coupling":
		return cfg.Model.Coupling, true
	case "history.rainfall_threshold_mm":
		return cfg.History.RainfallThresholdMM, true
	case "llm.provider":
		return cfg.LLM.Provider, true
	case "llm.api_key":
		return cfg.LLM.RedactedAPIKey(), true
	case "llm.base_url":
		return cfg.LLM.BaseURL, true
	case "llm.model":
		return cfg.LLM.Model, true
	case "llm.timeout":
		return cfg.LLM.Timeout.String(), true
	case "llm.enabled":
		return cfg.LLM.Enabled, true
	case "llm.fallback_to_rules":
		return cfg.LLM.FallbackToRules, true
	case "logging.level":
		return cfg.Logging.Level, true
	case "server.addr":
		return cfg.Server.Addr, true
	case "server.max_shots":
		return cfg.Server.MaxShots, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key. Range
// checks are left to OracleConfig.Validate.
func setConfigValue(cfg *config.OracleConfig, key, value string) error {
	var err error
	switch key {
	case "simulation.shots":
		cfg.Simulation.Shots, err = strconv.Atoi(value)
	case "simulation.workers":
		cfg.Simulation.Workers, err = strconv.Atoi(value)
	case "simulation.seed":
		cfg.Simulation.Seed, err = strconv.ParseUint(value, 10, 64)
	case "simulation.order":
		cfg.Simulation.Order = value
	case "model.disrupted_prior":
		cfg.Model.DisruptedPrior, err = strconv.ParseFloat(value, 64)
	case "model.normal_prior":
		cfg.Model.NormalPrior, err = strconv.ParseFloat(value, 64)
	case "model.high_prior":
		cfg.Model.HighPrior, err = strconv.ParseFloat(value, 64)
	case "model.standard_prior":
		cfg.Model.StandardPrior, err = strconv.ParseFloat(value, 64)
	case "model.coupling":
		cfg.Model.Coupling, err = strconv.ParseFloat(value, 64)
	case "history.rainfall_threshold_mm":
		cfg.History.RainfallThresholdMM, err = strconv.ParseFloat(value, 64)
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.api_key":
		cfg.LLM.APIKey = value
	case "llm.base_url":
		cfg.LLM.BaseURL = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.timeout":
		cfg.LLM.Timeout, err = time.ParseDuration(value)
	case "llm.enabled":
		cfg.LLM.Enabled, err = strconv.ParseBool(value)
	case "llm.fallback_to_rules":
		cfg.LLM.FallbackToRules, err = strconv.ParseBool(value)
	case "logging.level":
		cfg.Logging.Level = value
	case "server.addr":
		cfg.Server.Addr = value
	case "server.max_shots":
		cfg.Server.MaxShots, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return nil
}
