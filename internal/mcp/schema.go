package mcp

import (
	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/history"
)

// SimulateInput defines the input for the oracle_simulate tool.
type SimulateInput struct {
	Monsoon     string   `json:"monsoon,omitempty" jsonschema:"Initial monsoon state: Normal (default) or Disrupted"`
	Subsidies   string   `json:"subsidies,omitempty" jsonschema:"Initial subsidy state: Standard (default) or High"`
	FromHistory bool     `json:"from_history,omitempty" jsonschema:"Derive the initial condition from the latest historical record instead of monsoon/subsidies"`
	Shocks      []string `json:"shocks,omitempty" jsonschema:"Shock names from oracle_shocks, applied in the given order"`
	Shots       *int     `json:"shots,omitempty" jsonschema:"Number of simulated seasons, at least 1 (omit for the configured default)"`
	Seed        uint64   `json:"seed,omitempty" jsonschema:"Random seed for a reproducible run (0 picks a fresh seed)"`
	Order       string   `json:"order,omitempty" jsonschema:"Outcome ordering: first-seen (default) or probability"`
	Exact       bool     `json:"exact,omitempty" jsonschema:"Compute the exact distribution instead of sampling"`
	Narrate     bool     `json:"narrate,omitempty" jsonschema:"Generate a news-style narrative report"`
	Title       string   `json:"title,omitempty" jsonschema:"Event title used in the narrative (default: shock names)"`
	Description string   `json:"description,omitempty" jsonschema:"Analyst notes passed to the narrative generator"`
}

// SimulateOutput defines the output for the oracle_simulate tool.
type SimulateOutput struct {
	RunID          string            `json:"run_id" jsonschema:"Unique identifier of this run"`
	Event          string            `json:"event" jsonschema:"Event title of the run"`
	Initial        string            `json:"initial" jsonschema:"Initial condition the network was built from"`
	HistoryRecord  *history.Record   `json:"history_record,omitempty" jsonschema:"Historical record used when from_history was set"`
	Shocks         []string          `json:"shocks" jsonschema:"Shocks applied in order"`
	Shots          int               `json:"shots" jsonschema:"Number of samples drawn (0 for exact runs)"`
	Seed           uint64            `json:"seed,omitempty" jsonschema:"Seed used for sampling"`
	Exact          bool              `json:"exact,omitempty" jsonschema:"Whether the distribution was computed exactly"`
	Outcomes       []decoder.Outcome `json:"outcomes" jsonschema:"Labelled outcomes with probabilities in percent"`
	Report         string            `json:"report" jsonschema:"Plain-text outcome table"`
	Narrative      string            `json:"narrative,omitempty" jsonschema:"Narrative report when requested"`
	NarrativeError string            `json:"narrative_error,omitempty" jsonschema:"Why the narrative could not be generated"`
}

// ShocksInput defines the input for the oracle_shocks tool (no parameters).
type ShocksInput struct{}

// ShockSummary describes one catalog entry.
type ShockSummary struct {
	Name        string `json:"name" jsonschema:"Shock name to pass to oracle_simulate"`
	Factor      string `json:"factor" jsonschema:"Factor the shock acts on"`
	Kind        string `json:"kind" jsonschema:"Transform kind: force, flip or none"`
	Description string `json:"description" jsonschema:"What the shock represents"`
}

// ShocksOutput defines the output for the oracle_shocks tool.
type ShocksOutput struct {
	Shocks  []ShockSummary `json:"shocks" jsonschema:"Catalog of selectable shocks in display order"`
	Default string         `json:"default" jsonschema:"Shock selected when none is chosen"`
}

// HistoryInput defines the input for the oracle_history tool.
type HistoryInput struct {
	LatestOnly bool `json:"latest_only,omitempty" jsonschema:"Return only the most recent record"`
}

// HistoryOutput defines the output for the oracle_history tool.
type HistoryOutput struct {
	Records        []history.Record `json:"records" jsonschema:"Historical records ordered by year"`
	Latest         *history.Record  `json:"latest,omitempty" jsonschema:"Most recent record"`
	DerivedInitial string           `json:"derived_initial,omitempty" jsonschema:"Initial condition derived from the latest record"`
	ThresholdMM    float64          `json:"threshold_mm" jsonschema:"Rainfall below this marks the monsoon disrupted"`
}

// GraphInput defines the input for the oracle_graph tool.
type GraphInput struct {
	Monsoon   string   `json:"monsoon,omitempty" jsonschema:"Initial monsoon state: Normal (default) or Disrupted"`
	Subsidies string   `json:"subsidies,omitempty" jsonschema:"Initial subsidy state: Standard (default) or High"`
	Shocks    []string `json:"shocks,omitempty" jsonschema:"Shocks to draw on the network, in order"`
	Format    string   `json:"format,omitempty" jsonschema:"Output format: dot (default) or json"`
}

// GraphOutput defines the output for the oracle_graph tool.
type GraphOutput struct {
	Format     string      `json:"format" jsonschema:"Output format used"`
	Graph      interface{} `json:"graph" jsonschema:"Graph in the requested format"`
	NodeCount  int         `json:"node_count" jsonschema:"Number of factor nodes"`
	EdgeCount  int         `json:"edge_count" jsonschema:"Number of correlation edges"`
	ShockCount int         `json:"shock_count" jsonschema:"Number of shocks drawn"`
}
