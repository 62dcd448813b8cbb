// Package logging provides leveled logging and decision tracing for the oracle.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A DecisionLogger for per-stage JSONL traces of each run (.oracle/decisions.jsonl)
package logging

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace sits below Debug. Narrative prompts and responses are only
// logged at this level.
const LevelTrace = slog.LevelDebug - 4

var levels = map[string]slog.Level{
	"info":  slog.LevelInfo,
	"debug": slog.LevelDebug,
	"trace": LevelTrace,
}

// ParseLevel maps "info", "debug" or "trace" (any case) to a slog.Level.
// Anything else is info.
func ParseLevel(s string) slog.Level {
	if lvl, ok := levels[strings.ToLower(strings.TrimSpace(s))]; ok {
		return lvl
	}
	return slog.LevelInfo
}

// NewLogger creates a text slog.Logger writing to w at the named level.
func NewLogger(level string, w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       ParseLevel(level),
		ReplaceAttr: labelTrace,
	}))
}

// labelTrace prints LevelTrace as TRACE instead of DEBUG-4.
func labelTrace(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
		a.Value = slog.StringValue("TRACE")
	}
	return a
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Pipeline stages recorded in decision traces.
const (
	StageBuild    = "build"
	StageShock    = "shock"
	StageSample   = "sample"
	StageDecode   = "decode"
	StageNarrate  = "narrate"
	StageRejected = "rejected"
)

// Decision is one line of a run's trace.
type Decision struct {
	Time   time.Time      `json:"time"`
	RunID  string         `json:"run_id"`
	Stage  string         `json:"stage"`
	Detail map[string]any `json:"detail,omitempty"`
}

// DecisionLogger appends Decisions to a JSONL file. It is safe for
// concurrent use, and every method is a no-op on a nil receiver so callers
// never need to check whether tracing is on.
type DecisionLogger struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
	path string
}

// NewDecisionLogger opens dir/decisions.jsonl for append when level is
// debug or trace. At info level, or if the file cannot be opened, it
// returns nil.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) > slog.LevelDebug {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, "decisions.jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}
	return &DecisionLogger{file: f, enc: json.NewEncoder(f), path: path}
}

// Path returns the trace file path, or "" on a nil logger.
func (dl *DecisionLogger) Path() string {
	if dl == nil {
		return ""
	}
	return dl.path
}

// Log records one stage of a run. detail is encoded as-is and not retained.
func (dl *DecisionLogger) Log(runID, stage string, detail map[string]any) {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file == nil {
		return
	}
	// Write errors are dropped; tracing must never fail a run.
	_ = dl.enc.Encode(Decision{
		Time:   time.Now().UTC(),
		RunID:  runID,
		Stage:  stage,
		Detail: detail,
	})
}

// Close closes the trace file.
func (dl *DecisionLogger) Close() {
	if dl == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()
	if dl.file != nil {
		dl.file.Close()
		dl.file = nil
	}
}
