package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/config"
	"github.com/agrioracle/agri-oracle/internal/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "oracle",
		Short: "Agri oracle - correlated what-if simulations of an agricultural economy",
		Long: `oracle simulates four linked factors of a rain-fed agricultural economy
(monsoon, crop yield, subsidies and market demand) and estimates how
likely each combined outcome is after a shock such as a drought or a
trade ban.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSimulateCmd(),
		newShocksCmd(),
		newHistoryCmd(),
		newGraphCmd(),
		newConfigCmd(),
		newServeCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

// loadConfig loads and validates the user configuration.
func loadConfig() (*config.OracleConfig, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the operational logger for a command. Logs go to w so
// they never mix with command output.
func newLogger(cfg *config.OracleConfig, w io.Writer) *slog.Logger {
	return logging.NewLogger(cfg.Logging.Level, w)
}

// stateDir returns the project-local state directory.
func stateDir(root string) string {
	return filepath.Join(root, ".oracle")
}
