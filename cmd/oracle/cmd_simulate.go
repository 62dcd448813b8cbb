package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/logging"
	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/scenario"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a what-if simulation",
		Long: `Build the correlation network for an initial condition, apply shocks in
order, sample it and print the probability of every combined outcome.

Examples:
  oracle simulate --shock "Severe Drought Hits"
  oracle simulate --monsoon Disrupted --subsidies High --shots 5000 --seed 42
  oracle simulate --from-history --shock "International Trade Ban Reduces Demand" --narrate
  oracle simulate --scenario kharif.yaml --order probability
  oracle simulate --exact --shock "Govt. Announces New High-Subsidy Package"`,
		RunE: runSimulate,
	}

	cmd.Flags().String("monsoon", "", "Initial monsoon state: Normal or Disrupted")
	cmd.Flags().String("subsidies", "", "Initial subsidy state: Standard or High")
	cmd.Flags().StringArray("shock", nil, "Shock to apply (repeatable, applied in order)")
	cmd.Flags().Int("shots", 0, "Number of simulated seasons (default from config)")
	cmd.Flags().Uint64("seed", 0, "Random seed for a reproducible run (0 = fresh seed)")
	cmd.Flags().Int("workers", 0, "Sampling goroutines (default from config)")
	cmd.Flags().String("order", "", "Outcome ordering: first-seen or probability")
	cmd.Flags().Bool("from-history", false, "Derive the initial condition from the latest historical record")
	cmd.Flags().String("scenario", "", "Load the run from a YAML or JSON scenario file")
	cmd.Flags().Bool("exact", false, "Compute the exact distribution instead of sampling")
	cmd.Flags().Bool("narrate", false, "Generate a narrative report")
	cmd.Flags().String("title", "", "Event title for the narrative")
	cmd.Flags().String("description", "", "Analyst notes for the narrative")

	return cmd
}

// buildRequest merges a scenario file (if any) with command-line flags.
// Flags that were set explicitly win over the file.
func buildRequest(cmd *cobra.Command) (oracle.Request, error) {
	var req oracle.Request
	flags := cmd.Flags()

	if path, _ := flags.GetString("scenario"); path != "" {
		sc, err := scenario.LoadFile(path)
		if err != nil {
			return req, err
		}
		req = oracle.Request{
			Initial:     sc.Initial,
			FromHistory: sc.FromHistory,
			Shocks:      sc.Shocks,
			Shots:       sc.Shots,
			Seed:        sc.Seed,
			Order:       decoder.Order(sc.Order),
			Narrate:     sc.Narrate,
			Title:       sc.Name,
			Description: sc.Description,
		}
	}

	if flags.Changed("monsoon") {
		v, _ := flags.GetString("monsoon")
		req.Initial.Monsoon = models.MonsoonState(v)
	}
	if flags.Changed("subsidies") {
		v, _ := flags.GetString("subsidies")
		req.Initial.Subsidies = models.SubsidyState(v)
	}
	if flags.Changed("shock") {
		req.Shocks, _ = flags.GetStringArray("shock")
	}
	if flags.Changed("shots") {
		req.Shots, _ = flags.GetInt("shots")
		if req.Shots <= 0 {
			return req, fmt.Errorf("--shots must be positive, got %d", req.Shots)
		}
	}
	if flags.Changed("seed") {
		req.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("order") {
		v, _ := flags.GetString("order")
		req.Order = decoder.Order(v)
	}
	if flags.Changed("from-history") {
		req.FromHistory, _ = flags.GetBool("from-history")
	}
	if flags.Changed("narrate") {
		req.Narrate, _ = flags.GetBool("narrate")
	}
	if flags.Changed("title") {
		req.Title, _ = flags.GetString("title")
	}
	if flags.Changed("description") {
		req.Description, _ = flags.GetString("description")
	}
	req.Exact, _ = flags.GetBool("exact")

	return req, nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")
	root, _ := cmd.Flags().GetString("root")
	ctx := cmd.Context()

	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workers") {
		cfg.Simulation.Workers, _ = cmd.Flags().GetInt("workers")
	}

	var hist oracle.HistorySource
	if req.FromHistory {
		store, err := history.Open(ctx, root)
		if err != nil {
			return fmt.Errorf("failed to open history store: %w", err)
		}
		defer store.Close()
		hist = store
	}

	decisions := logging.NewDecisionLogger(stateDir(root), cfg.Logging.Level)
	defer decisions.Close()

	o := oracle.NewFromConfig(cfg, hist, newLogger(cfg, cmd.ErrOrStderr()), decisions)
	res, runErr := o.Run(ctx, req)
	if runErr != nil && (res == nil || !errors.Is(runErr, oracle.ErrNarrative)) {
		return runErr
	}

	out := cmd.OutOrStdout()
	if jsonOut {
		payload := map[string]interface{}{"result": res}
		if runErr != nil {
			payload["narrative_error"] = runErr.Error()
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(payload); err != nil {
			return err
		}
	} else {
		printResult(out, res)
	}

	return runErr
}

func printResult(w io.Writer, res *oracle.Result) {
	fmt.Fprintf(w, "Event:   %s\n", res.Event)
	fmt.Fprintf(w, "Initial: %s\n", res.Initial)
	if res.Record != nil {
		fmt.Fprintf(w, "History: %d (rainfall %.0fmm, %s subsidies)\n",
			res.Record.Year, res.Record.RainfallMM, res.Record.SubsidyLevel)
	}
	if res.Exact {
		fmt.Fprintln(w, "Mode:    exact distribution")
	} else {
		fmt.Fprintf(w, "Shots:   %d (seed %d)\n", res.Shots, res.Seed)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, res.Table.Report())

	if res.Narrative != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Report:")
		fmt.Fprintln(w, res.Narrative)
	}
}
