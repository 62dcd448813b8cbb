// Package backup snapshots and restores the historical reference table.
package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/pathutil"
)

// Source lists records to back up.
type Source interface {
	List(ctx context.Context) ([]history.Record, error)
}

// Target receives restored records.
type Target interface {
	Source
	Add(ctx context.Context, r history.Record) error
}

// DefaultDir returns the project-local backup directory.
func DefaultDir(root string) string {
	return filepath.Join(root, ".oracle", "backups")
}

// GeneratePath creates a timestamped snapshot filename in dir.
func GeneratePath(dir string) string {
	ts := time.Now().Format("20060102-150405")
	return filepath.Join(dir, fmt.Sprintf("history-%s.json.zst", ts))
}

// Backup writes every record in src to outputPath. A non-nil guard must
// accept outputPath.
func Backup(ctx context.Context, src Source, outputPath string, guard *pathutil.Guard) (*Snapshot, error) {
	if guard != nil {
		resolved, err := guard.Check(outputPath)
		if err != nil {
			return nil, fmt.Errorf("backup path rejected: %w", err)
		}
		outputPath = resolved
	}

	records, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	snap := &Snapshot{
		Version:   FormatVersion,
		CreatedAt: time.Now().UTC(),
		Records:   records,
	}
	if err := Write(outputPath, snap); err != nil {
		return nil, fmt.Errorf("failed to write snapshot %s: %w", pathutil.Redact(outputPath), err)
	}
	return snap, nil
}

// RestoreMode controls how restore handles years already in the table.
type RestoreMode string

const (
	// RestoreMerge skips years that already exist (default).
	RestoreMerge RestoreMode = "merge"
	// RestoreOverwrite replaces existing years with the snapshot's values.
	RestoreOverwrite RestoreMode = "overwrite"
)

// RestoreResult contains statistics about the restore operation.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// Restore loads the snapshot at inputPath into dst. A non-nil guard must
// accept inputPath.
func Restore(ctx context.Context, dst Target, inputPath string, mode RestoreMode, guard *pathutil.Guard) (*RestoreResult, error) {
	if guard != nil {
		resolved, err := guard.Check(inputPath)
		if err != nil {
			return nil, fmt.Errorf("restore path rejected: %w", err)
		}
		inputPath = resolved
	}

	snap, err := Read(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", pathutil.Redact(inputPath), err)
	}

	existing := make(map[int]bool)
	if mode != RestoreOverwrite {
		current, err := dst.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list existing records: %w", err)
		}
		for _, r := range current {
			existing[r.Year] = true
		}
	}

	result := &RestoreResult{}
	for _, r := range snap.Records {
		if existing[r.Year] {
			result.Skipped++
			continue
		}
		if err := dst.Add(ctx, r); err != nil {
			return nil, fmt.Errorf("failed to restore %d: %w", r.Year, err)
		}
		result.Restored++
	}
	return result, nil
}
