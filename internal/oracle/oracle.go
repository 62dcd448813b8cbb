// Package oracle runs the end-to-end what-if pipeline: build the correlation
// network for an initial condition, apply shocks, sample, decode and
// optionally narrate the result.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agrioracle/agri-oracle/internal/config"
	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/logging"
	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/narrative"
	"github.com/agrioracle/agri-oracle/internal/network"
	"github.com/agrioracle/agri-oracle/internal/sampler"
	"github.com/agrioracle/agri-oracle/internal/shock"
)

// ErrNarrative wraps every failure of the narrative stage. A run that fails
// here still returns its Result.
var ErrNarrative = errors.New("narrative generation failed")

// HistorySource supplies the most recent reference record.
type HistorySource interface {
	Latest(ctx context.Context) (history.Record, error)
}

// Options configures an Oracle. Zero values fall back to defaults; a zero
// Params means network.DefaultParams.
type Options struct {
	Params    network.Params
	Sampler   sampler.Config
	Shots     int
	Order     decoder.Order
	Generator narrative.Generator

	History             HistorySource
	RainfallThresholdMM float64

	Logger    *slog.Logger
	Decisions *logging.DecisionLogger
}

// Oracle executes simulation requests. It is safe for concurrent use.
type Oracle struct {
	builder   *network.Builder
	sampler   sampler.Config
	shots     int
	order     decoder.Order
	generator narrative.Generator
	history   HistorySource
	threshold float64
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// New creates an Oracle.
func New(opts Options) *Oracle {
	shots := opts.Shots
	if shots == 0 {
		shots = sampler.DefaultShots
	}
	order := opts.Order
	if order == "" {
		order = decoder.OrderFirstSeen
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	params := opts.Params
	if params == (network.Params{}) {
		params = network.DefaultParams()
	}
	return &Oracle{
		builder:   network.NewBuilder(params),
		sampler:   opts.Sampler,
		shots:     shots,
		order:     order,
		generator: opts.Generator,
		history:   opts.History,
		threshold: opts.RainfallThresholdMM,
		logger:    logger,
		decisions: opts.Decisions,
	}
}

// NewFromConfig creates an Oracle from loaded configuration.
func NewFromConfig(cfg *config.OracleConfig, hist HistorySource, logger *slog.Logger, decisions *logging.DecisionLogger) *Oracle {
	return New(Options{
		Params:              cfg.NetworkParams(),
		Sampler:             cfg.SamplerConfig(),
		Shots:               cfg.Simulation.Shots,
		Order:               decoder.Order(cfg.Simulation.Order),
		Generator:           narrative.NewFromConfig(cfg.LLM),
		History:             hist,
		RainfallThresholdMM: cfg.History.RainfallThresholdMM,
		Logger:              logger,
		Decisions:           decisions,
	})
}

// Builder returns the network builder used for every run.
func (o *Oracle) Builder() *network.Builder {
	return o.builder
}

// Request describes one run.
type Request struct {
	// Initial is the starting condition. Ignored when FromHistory is set.
	Initial models.InitialCondition `json:"initial"`

	// FromHistory derives the initial condition from the latest reference record.
	FromHistory bool `json:"from_history,omitempty"`

	// Shocks are applied in order after the correlation stage.
	Shocks []string `json:"shocks,omitempty"`

	// Shots overrides the configured shot count when positive.
	Shots int `json:"shots,omitempty"`

	// Seed overrides the configured seed when non-zero.
	Seed uint64 `json:"seed,omitempty"`

	// Order overrides the configured outcome ordering.
	Order decoder.Order `json:"order,omitempty"`

	// Exact computes the analytic distribution instead of sampling.
	Exact bool `json:"exact,omitempty"`

	// Narrate requests a narrative report.
	Narrate bool `json:"narrate,omitempty"`

	// Title and Description are passed to the narrative generator.
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Result is the outcome of one run.
type Result struct {
	RunID     string                  `json:"run_id"`
	Event     string                  `json:"event"`
	Initial   models.InitialCondition `json:"initial"`
	Record    *history.Record         `json:"history_record,omitempty"`
	Shocks    []string                `json:"shocks"`
	Shots     int                     `json:"shots"`
	Seed      uint64                  `json:"seed,omitempty"`
	Exact     bool                    `json:"exact,omitempty"`
	Network   *network.Network        `json:"-"`
	Samples   *sampler.SampleSet      `json:"counts,omitempty"`
	Table     *decoder.OutcomeTable   `json:"table"`
	Narrative string                  `json:"narrative,omitempty"`
	Duration  time.Duration           `json:"duration_ns"`
}

// Run executes a request. Unknown shocks and invalid shot counts are
// rejected before any sampling. A narrative failure returns the completed
// Result together with an error wrapping ErrNarrative.
func (o *Oracle) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()

	order := req.Order
	if order == "" {
		order = o.order
	}
	order, err := decoder.ParseOrder(string(order))
	if err != nil {
		return nil, err
	}

	shots := req.Shots
	if shots == 0 {
		shots = o.shots
	}
	if shots <= 0 && !req.Exact {
		o.decisions.Log(runID, logging.StageRejected, map[string]any{"reason": "invalid shots", "shots": shots})
		return nil, &sampler.InvalidShotsError{Shots: shots}
	}

	resolved, err := shock.Resolve(req.Shocks)
	if err != nil {
		o.decisions.Log(runID, logging.StageRejected, map[string]any{"reason": err.Error(), "shocks": req.Shocks})
		return nil, err
	}

	res := &Result{
		RunID:   runID,
		Initial: req.Initial.Normalize(),
		Shocks:  append([]string{}, req.Shocks...),
		Exact:   req.Exact,
	}

	if req.FromHistory {
		if o.history == nil {
			return nil, fmt.Errorf("history source not configured")
		}
		rec, err := o.history.Latest(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading latest history record: %w", err)
		}
		res.Record = &rec
		res.Initial = history.Derive(rec, o.threshold)
	}

	res.Event = req.Title
	if res.Event == "" {
		res.Event = strings.Join(req.Shocks, " + ")
	}
	if res.Event == "" {
		res.Event = shock.NoMajorEvent
	}

	base := o.builder.Build(res.Initial)
	o.decisions.Log(runID, logging.StageBuild, map[string]any{
		"initial": res.Initial.String(),
		"ops":     base.Len(),
	})

	res.Network = shock.ApplyShocks(base, resolved)
	o.decisions.Log(runID, logging.StageShock, map[string]any{"shocks": res.Shocks})

	if req.Exact {
		res.Table = decoder.DecodeDistribution(sampler.Exact(res.Network))
		o.decisions.Log(runID, logging.StageDecode, map[string]any{"exact": true, "outcomes": len(res.Table.Outcomes)})
	} else {
		cfg := o.sampler
		if req.Seed != 0 {
			cfg.Seed = req.Seed
		}
		if cfg.Seed == 0 {
			cfg.Seed = rand.Uint64()
		}
		res.Shots = shots
		res.Seed = cfg.Seed

		res.Samples, err = sampler.New(cfg).Sample(ctx, res.Network, shots)
		if err != nil {
			return nil, err
		}
		o.decisions.Log(runID, logging.StageSample, map[string]any{
			"shots":    shots,
			"seed":     cfg.Seed,
			"patterns": res.Samples.Len(),
		})

		res.Table, err = decoder.Decode(res.Samples, order)
		if err != nil {
			return nil, err
		}
		o.decisions.Log(runID, logging.StageDecode, map[string]any{"order": string(order), "outcomes": len(res.Table.Outcomes)})
	}

	o.logger.Debug("simulation complete",
		"run_id", runID,
		"event", res.Event,
		"initial", res.Initial.String(),
		"outcomes", len(res.Table.Outcomes))

	if req.Narrate {
		res.Narrative, err = o.narrate(ctx, runID, req, res)
		res.Duration = time.Since(start)
		if err != nil {
			return res, err
		}
	}

	res.Duration = time.Since(start)
	return res, nil
}

func (o *Oracle) narrate(ctx context.Context, runID string, req Request, res *Result) (string, error) {
	if o.generator == nil || !o.generator.Available() {
		o.decisions.Log(runID, logging.StageNarrate, map[string]any{"error": narrative.ErrUnavailable.Error()})
		return "", fmt.Errorf("%w: %w", ErrNarrative, narrative.ErrUnavailable)
	}

	briefing := narrative.Briefing{
		Event:       res.Event,
		Description: req.Description,
		Initial:     res.Initial,
		Table:       res.Table,
	}
	o.logger.Log(ctx, logging.LevelTrace, "narrative prompt", "run_id", runID, "prompt", narrative.Prompt(briefing))

	text, err := o.generator.Narrate(ctx, briefing)
	if err != nil {
		o.decisions.Log(runID, logging.StageNarrate, map[string]any{"error": err.Error()})
		return "", fmt.Errorf("%w: %w", ErrNarrative, err)
	}
	o.decisions.Log(runID, logging.StageNarrate, map[string]any{"chars": len(text)})
	o.logger.Log(ctx, logging.LevelTrace, "narrative response", "run_id", runID, "text", text)
	return text, nil
}
