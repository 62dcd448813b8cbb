// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the oracle's simulations to AI assistants.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agrioracle/agri-oracle/internal/config"
	"github.com/agrioracle/agri-oracle/internal/history"
	"github.com/agrioracle/agri-oracle/internal/logging"
	"github.com/agrioracle/agri-oracle/internal/oracle"
	"github.com/agrioracle/agri-oracle/internal/ratelimit"
)

// Server wraps the MCP SDK server and provides oracle-specific functionality.
type Server struct {
	server       *sdk.Server
	oracle       *oracle.Oracle
	history      *history.Store
	cfg          *config.OracleConfig
	root         string
	logger       *slog.Logger
	decisions    *logging.DecisionLogger
	auditLogger  *AuditLogger
	toolLimiters ratelimit.ToolLimiters
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "agri-oracle")
	Version string // Server version
	Root    string // Project root directory; state lives under Root/.oracle

	// Oracle overrides the configuration loaded from ~/.oracle/config.yaml.
	Oracle *config.OracleConfig

	// Logger receives operational logs. Nil discards them.
	Logger *slog.Logger
}

// NewServer creates a new MCP server with the oracle tools registered.
func NewServer(cfg *Config) (*Server, error) {
	oracleCfg := cfg.Oracle
	if oracleCfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		oracleCfg = loaded
	}
	if err := oracleCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	hist, err := history.Open(context.Background(), cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("failed to open history store: %w", err)
	}

	decisions := logging.NewDecisionLogger(filepath.Join(cfg.Root, ".oracle"), oracleCfg.Logging.Level)

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		oracle:       oracle.NewFromConfig(oracleCfg, hist, logger, decisions),
		history:      hist,
		cfg:          oracleCfg,
		root:         cfg.Root,
		logger:       logger,
		decisions:    decisions,
		auditLogger:  NewAuditLogger(cfg.Root),
		toolLimiters: ratelimit.NewToolLimiters(),
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()

	return err
}

// Close closes the server and releases resources. It is safe to call more
// than once.
func (s *Server) Close() error {
	var firstErr error
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			firstErr = err
		}
		s.history = nil
	}
	if s.auditLogger != nil {
		if err := s.auditLogger.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.auditLogger = nil
	}
	if s.decisions != nil {
		s.decisions.Close()
		s.decisions = nil
	}
	return firstErr
}
