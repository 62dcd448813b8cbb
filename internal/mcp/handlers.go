package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agrioracle/agri-oracle/internal/decoder"
	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/ratelimit"
	"github.com/agrioracle/agri-oracle/internal/scenario"
	"github.com/agrioracle/agri-oracle/internal/shock"
	"github.com/agrioracle/agri-oracle/internal/visualization"
)

const shocksResourceURI = "oracle://shocks"

// registerTools registers all oracle tools with the MCP server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolSimulate,
		Description: "Simulate the agricultural economy (monsoon, yield, subsidies, demand) under what-if shocks and return the labelled outcome probabilities",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolShocks,
		Description: "List the shocks that oracle_simulate accepts",
	}, s.handleShocks)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolHistory,
		Description: "List historical rainfall and subsidy records and the initial condition derived from the latest one",
	}, s.handleHistory)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        ratelimit.ToolGraph,
		Description: "Render the correlation network for an initial condition and shocks as DOT or JSON",
	}, s.handleGraph)

	return nil
}

// registerResources registers MCP resources.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         shocksResourceURI,
		Name:        "oracle-shocks",
		Description: "Catalog of what-if shocks the oracle can simulate.",
		MIMEType:    "text/markdown",
	}, s.handleShocksResource)

	return nil
}

// handleShocksResource renders the shock catalog as markdown.
func (s *Server) handleShocksResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	var sb strings.Builder
	sb.WriteString("# Shock Catalog\n\n")
	for _, sh := range shock.Catalog() {
		sb.WriteString(fmt.Sprintf("- **%s** (%s %s): %s\n", sh.Name, sh.Kind, sh.Factor, sh.Description))
	}
	sb.WriteString(fmt.Sprintf("\nDefault: %s\n", shock.DefaultSelected))

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      shocksResourceURI,
				MIMEType: "text/markdown",
				Text:     sb.String(),
			},
		},
	}, nil
}

// handleSimulate implements the oracle_simulate tool.
func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolSimulate, start, retErr, sanitizeToolParams(ratelimit.ToolSimulate, map[string]interface{}{
			"monsoon":      args.Monsoon,
			"subsidies":    args.Subsidies,
			"from_history": args.FromHistory,
			"shock_count":  len(args.Shocks),
			"shots":        shotsParam(args.Shots),
			"seed":         args.Seed,
			"order":        args.Order,
			"exact":        args.Exact,
			"narrate":      args.Narrate,
			"title":        args.Title,
			"description":  args.Description,
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolSimulate); err != nil {
		return nil, SimulateOutput{}, err
	}

	if err := validateScenario(args); err != nil {
		return nil, SimulateOutput{}, err
	}

	// An omitted shot count means the configured default; an explicit one
	// has already passed the schema minimum.
	var shots int
	if args.Shots != nil {
		shots = *args.Shots
	}
	if limit := s.cfg.Server.MaxShots; limit > 0 && shots > limit {
		return nil, SimulateOutput{}, fmt.Errorf("shots %d exceeds the limit of %d", shots, limit)
	}

	res, err := s.oracle.Run(ctx, oracle.Request{
		Initial: models.InitialCondition{
			Monsoon:   models.MonsoonState(args.Monsoon),
			Subsidies: models.SubsidyState(args.Subsidies),
		},
		FromHistory: args.FromHistory,
		Shocks:      args.Shocks,
		Shots:       shots,
		Seed:        args.Seed,
		Order:       decoder.Order(args.Order),
		Exact:       args.Exact,
		Narrate:     args.Narrate,
		Title:       args.Title,
		Description: args.Description,
	})
	var narrErr string
	if err != nil {
		if res == nil || !errors.Is(err, oracle.ErrNarrative) {
			return nil, SimulateOutput{}, fmt.Errorf("simulation failed: %w", err)
		}
		narrErr = err.Error()
	}

	return nil, SimulateOutput{
		RunID:          res.RunID,
		Event:          res.Event,
		Initial:        res.Initial.String(),
		HistoryRecord:  res.Record,
		Shocks:         res.Shocks,
		Shots:          res.Shots,
		Seed:           res.Seed,
		Exact:          res.Exact,
		Outcomes:       res.Table.Outcomes,
		Report:         res.Table.Report(),
		Narrative:      res.Narrative,
		NarrativeError: narrErr,
	}, nil
}

func shotsParam(shots *int) interface{} {
	if shots == nil {
		return "default"
	}
	return *shots
}

// validateScenario checks the request against the same schema that scenario
// files use, so both entry points share their bounds.
func validateScenario(args SimulateInput) error {
	doc := map[string]interface{}{
		"initial": map[string]string{
			"monsoon":   args.Monsoon,
			"subsidies": args.Subsidies,
		},
		"from_history": args.FromHistory,
		"narrate":      args.Narrate,
		"seed":         args.Seed,
		"order":        args.Order,
	}
	if args.Title != "" {
		doc["name"] = args.Title
	}
	if args.Description != "" {
		doc["description"] = args.Description
	}
	if args.Shocks != nil {
		doc["shocks"] = args.Shocks
	}
	if args.Shots != nil {
		doc["shots"] = *args.Shots
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	return scenario.ValidateJSON(scenario.ScenarioSchema, raw)
}

// handleShocks implements the oracle_shocks tool.
func (s *Server) handleShocks(ctx context.Context, req *sdk.CallToolRequest, args ShocksInput) (_ *sdk.CallToolResult, _ ShocksOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolShocks, start, retErr, sanitizeToolParams(ratelimit.ToolShocks, map[string]interface{}{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolShocks); err != nil {
		return nil, ShocksOutput{}, err
	}

	catalog := shock.Catalog()
	out := ShocksOutput{
		Shocks:  make([]ShockSummary, 0, len(catalog)),
		Default: shock.DefaultSelected,
	}
	for _, sh := range catalog {
		out.Shocks = append(out.Shocks, ShockSummary{
			Name:        sh.Name,
			Factor:      sh.Factor.String(),
			Kind:        string(sh.Kind),
			Description: sh.Description,
		})
	}
	return nil, out, nil
}

// handleHistory implements the oracle_history tool.
func (s *Server) handleHistory(ctx context.Context, req *sdk.CallToolRequest, args HistoryInput) (_ *sdk.CallToolResult, _ HistoryOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolHistory, start, retErr, sanitizeToolParams(ratelimit.ToolHistory, map[string]interface{}{}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolHistory); err != nil {
		return nil, HistoryOutput{}, err
	}

	threshold := s.cfg.History.RainfallThresholdMM
	out := HistoryOutput{Records: []history.Record{}, ThresholdMM: threshold}

	latest, err := s.history.Latest(ctx)
	if err != nil && !errors.Is(err, history.ErrNoRecords) {
		return nil, HistoryOutput{}, fmt.Errorf("loading latest record: %w", err)
	}
	if err == nil {
		out.Latest = &latest
		out.DerivedInitial = history.Derive(latest, threshold).String()
	}

	if args.LatestOnly {
		if out.Latest != nil {
			out.Records = append(out.Records, latest)
		}
		return nil, out, nil
	}

	records, err := s.history.List(ctx)
	if err != nil {
		return nil, HistoryOutput{}, fmt.Errorf("listing records: %w", err)
	}
	out.Records = append(out.Records, records...)
	return nil, out, nil
}

// handleGraph implements the oracle_graph tool.
func (s *Server) handleGraph(ctx context.Context, req *sdk.CallToolRequest, args GraphInput) (_ *sdk.CallToolResult, _ GraphOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool(ratelimit.ToolGraph, start, retErr, sanitizeToolParams(ratelimit.ToolGraph, map[string]interface{}{
			"format":      args.Format,
			"monsoon":     args.Monsoon,
			"subsidies":   args.Subsidies,
			"shock_count": len(args.Shocks),
		}))
	}()

	if err := ratelimit.CheckLimit(s.toolLimiters, ratelimit.ToolGraph); err != nil {
		return nil, GraphOutput{}, err
	}

	format, err := visualization.ParseFormat(args.Format)
	if err != nil {
		return nil, GraphOutput{}, err
	}

	base := s.oracle.Builder().Build(models.InitialCondition{
		Monsoon:   models.MonsoonState(args.Monsoon),
		Subsidies: models.SubsidyState(args.Subsidies),
	})
	n, err := shock.Apply(base, args.Shocks)
	if err != nil {
		return nil, GraphOutput{}, err
	}

	out := GraphOutput{
		Format:     string(format),
		NodeCount:  models.NumFactors,
		EdgeCount:  len(n.Entanglements()),
		ShockCount: len(n.Shocks()),
	}
	switch format {
	case visualization.FormatJSON:
		out.Graph = visualization.RenderJSON(n)
	default:
		out.Graph = visualization.RenderDOT(n)
	}
	return nil, out, nil
}
