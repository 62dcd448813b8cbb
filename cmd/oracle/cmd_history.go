package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/history"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Manage historical rainfall and subsidy records",
		Long: `View and extend the historical reference table used by --from-history.

Records live in .oracle/history.db under the project root and are seeded
with the built-in 2022-2025 table on first use.

Examples:
  oracle history list
  oracle history latest
  oracle history add --year 2026 --rainfall 1120 --subsidy high
  oracle history add --csv rainfall.csv
  oracle history backup
  oracle history restore .oracle/backups/history-20260101-120000.json.zst`,
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryLatestCmd(),
		newHistoryAddCmd(),
		newHistoryBackupCmd(),
		newHistoryRestoreCmd(),
	)

	return cmd
}

func newHistoryListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all historical records",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")

			store, err := history.Open(cmd.Context(), root)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close()

			records, err := store.List(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"records": records,
					"count":   len(records),
				})
			}

			fmt.Fprintf(out, "%-6s %12s  %s\n", "YEAR", "RAINFALL_MM", "SUBSIDY")
			for _, r := range records {
				fmt.Fprintf(out, "%-6d %12.0f  %s\n", r.Year, r.RainfallMM, r.SubsidyLevel)
			}
			return nil
		},
	}
}

func newHistoryLatestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "latest",
		Short: "Show the latest record and the initial condition it implies",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := history.Open(cmd.Context(), root)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close()

			rec, err := store.Latest(cmd.Context())
			if err != nil {
				return err
			}
			initial := history.Derive(rec, cfg.History.RainfallThresholdMM)

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"record":  rec,
					"initial": initial.Normalize(),
				})
			}
			fmt.Fprintf(out, "%d: rainfall %.0fmm, %s subsidies\n", rec.Year, rec.RainfallMM, rec.SubsidyLevel)
			fmt.Fprintf(out, "Initial condition: %s\n", initial)
			return nil
		},
	}
}

func newHistoryAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add or replace historical records",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")
			csvPath, _ := cmd.Flags().GetString("csv")

			var records []history.Record
			if csvPath != "" {
				f, err := os.Open(csvPath)
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", csvPath, err)
				}
				defer f.Close()
				records, err = history.ParseCSV(f)
				if err != nil {
					return fmt.Errorf("failed to parse %s: %w", csvPath, err)
				}
			} else {
				if !cmd.Flags().Changed("year") || !cmd.Flags().Changed("rainfall") {
					return fmt.Errorf("--year and --rainfall are required (or use --csv)")
				}
				year, _ := cmd.Flags().GetInt("year")
				rainfall, _ := cmd.Flags().GetFloat64("rainfall")
				subsidy, _ := cmd.Flags().GetString("subsidy")
				records = []history.Record{{Year: year, RainfallMM: rainfall, SubsidyLevel: subsidy}}
			}

			store, err := history.Open(cmd.Context(), root)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close()

			for _, r := range records {
				if err := store.Add(cmd.Context(), r); err != nil {
					return fmt.Errorf("failed to add %d: %w", r.Year, err)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "added",
					"count":  len(records),
				})
			}
			fmt.Fprintf(out, "Added %d record(s)\n", len(records))
			return nil
		},
	}

	cmd.Flags().Int("year", 0, "Record year")
	cmd.Flags().Float64("rainfall", 0, "Annual rainfall in mm")
	cmd.Flags().String("subsidy", history.SubsidyLevelStandard, "Subsidy level: standard or high")
	cmd.Flags().String("csv", "", "Import records from a CSV file with year,rainfall_mm,subsidy_level columns")

	return cmd
}
