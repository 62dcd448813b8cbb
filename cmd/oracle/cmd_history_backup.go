package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agrioracle/agri-oracle/internal/backup"
	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/pathutil"
)

func newHistoryBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Snapshot the history table to a compressed file",
		Long: `Write every historical record to a checksummed, zstd-compressed snapshot.

Default location: <root>/.oracle/backups/history-YYYYMMDD-HHMMSS.json.zst
Snapshots may only be written under <root>/.oracle/backups or ~/.oracle/backups.

Examples:
  oracle history backup
  oracle history backup --keep 3
  oracle history backup --keep 3 --max-age 30d
  oracle history backup --output ~/.oracle/backups/history-before-import.json.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")
			outputPath, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			policy, err := retentionPolicy(keep, maxAge)
			if err != nil {
				return err
			}

			guard, err := pathutil.BackupGuard(root)
			if err != nil {
				return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
			}
			if outputPath == "" {
				outputPath = backup.GeneratePath(backup.DefaultDir(root))
			}

			store, err := history.Open(cmd.Context(), root)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close()

			snap, err := backup.Backup(cmd.Context(), store, outputPath, guard)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			var pruned []string
			if policy != nil {
				pruned, err = backup.ApplyRetention(filepath.Dir(outputPath), policy)
				if err != nil {
					return fmt.Errorf("retention failed: %w", err)
				}
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"path":    outputPath,
					"records": len(snap.Records),
					"pruned":  len(pruned),
				})
			}
			fmt.Fprintf(out, "Backed up %d record(s) to %s\n", len(snap.Records), outputPath)
			if len(pruned) > 0 {
				fmt.Fprintf(out, "Removed %d old snapshot(s)\n", len(pruned))
			}
			return nil
		},
	}

	cmd.Flags().String("output", "", "Snapshot file path")
	cmd.Flags().Int("keep", 10, "Number of snapshots to keep in the output directory (0 disables count retention)")
	cmd.Flags().String("max-age", "", "Also keep snapshots younger than this age, e.g. 30d, 2w, 72h")

	return cmd
}

// retentionPolicy combines --keep and --max-age. A snapshot survives if
// either policy keeps it. With neither set, nothing is pruned.
func retentionPolicy(keep int, maxAge string) (backup.RetentionPolicy, error) {
	var policies []backup.RetentionPolicy
	if keep > 0 {
		policies = append(policies, &backup.CountPolicy{MaxCount: keep})
	}
	if maxAge != "" {
		age, err := backup.ParseDuration(maxAge)
		if err != nil {
			return nil, fmt.Errorf("invalid --max-age: %w", err)
		}
		policies = append(policies, &backup.AgePolicy{MaxAge: age})
	}

	switch len(policies) {
	case 0:
		return nil, nil
	case 1:
		return policies[0], nil
	default:
		return &backup.CompositePolicy{Policies: policies}, nil
	}
}

func newHistoryRestoreCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restore <file>",
		Short: "Restore historical records from a snapshot",
		Long: `Load records from a snapshot written by 'oracle history backup'.

By default years already in the table are kept. Use --overwrite to replace
them with the snapshot's values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			root, _ := cmd.Flags().GetString("root")
			overwrite, _ := cmd.Flags().GetBool("overwrite")

			guard, err := pathutil.BackupGuard(root)
			if err != nil {
				return fmt.Errorf("failed to determine allowed backup dirs: %w", err)
			}

			mode := backup.RestoreMerge
			if overwrite {
				mode = backup.RestoreOverwrite
			}

			store, err := history.Open(cmd.Context(), root)
			if err != nil {
				return fmt.Errorf("failed to open history store: %w", err)
			}
			defer store.Close()

			res, err := backup.Restore(cmd.Context(), store, args[0], mode, guard)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]interface{}{
					"mode":     string(mode),
					"restored": res.Restored,
					"skipped":  res.Skipped,
				})
			}
			fmt.Fprintf(out, "Restored %d record(s), skipped %d existing\n", res.Restored, res.Skipped)
			return nil
		},
	}

	cmd.Flags().Bool("overwrite", false, "Replace years that already exist")

	return cmd
}
