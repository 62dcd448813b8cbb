package mcp

import (
	"context"
	"path/filepath"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/agrioracle/agri-oracle/internal/config"
	"github.com/agrioracle/agri-oracle/internal/ratelimit"
)

func setupTestServer(t *testing.T, mutate ...func(*config.OracleConfig)) (*Server, string) {
	t.Helper()
	tmpDir := t.TempDir()

	// Isolate from any ~/.oracle/config.yaml on the host.
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))

	cfg := config.Default()
	cfg.Simulation.Shots = 500
	cfg.Simulation.Seed = 7
	for _, m := range mutate {
		m(cfg)
	}

	server, err := NewServer(&Config{
		Name:    "test-server",
		Version: "v1.0.0",
		Root:    tmpDir,
		Oracle:  cfg,
	})
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	t.Cleanup(func() { server.Close() })

	return server, tmpDir
}

func TestNewServer(t *testing.T) {
	server, tmpDir := setupTestServer(t)

	if server.oracle == nil {
		t.Error("oracle should be initialized")
	}
	if server.auditLogger == nil {
		t.Error("auditLogger should be initialized")
	}
	if server.history == nil {
		t.Fatal("history store should be open")
	}
	if got, want := server.history.Path(), filepath.Join(tmpDir, ".oracle", "history.db"); got != want {
		t.Errorf("history path = %q, want %q", got, want)
	}

	if server.toolLimiters == nil {
		t.Fatal("toolLimiters should be initialized")
	}
	for _, tool := range []string{ratelimit.ToolSimulate, ratelimit.ToolShocks, ratelimit.ToolHistory, ratelimit.ToolGraph} {
		if _, ok := server.toolLimiters[tool]; !ok {
			t.Errorf("missing rate limiter for %s", tool)
		}
	}
}

func TestNewServer_InvalidConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg := config.Default()
	cfg.Simulation.Shots = 0

	_, err := NewServer(&Config{Name: "test", Version: "v0", Root: t.TempDir(), Oracle: cfg})
	if err == nil {
		t.Fatal("expected error for invalid config")
	}
}

func TestServer_CloseTwice(t *testing.T) {
	server, _ := setupTestServer(t)
	if err := server.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := server.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestServer_ListToolsOverTransport(t *testing.T) {
	server, _ := setupTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serverTransport, clientTransport := sdk.NewInMemoryTransports()
	serverSession, err := server.server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "v0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	got := make(map[string]bool)
	for _, tool := range res.Tools {
		got[tool.Name] = true
	}
	for _, want := range []string{ratelimit.ToolSimulate, ratelimit.ToolShocks, ratelimit.ToolHistory, ratelimit.ToolGraph} {
		if !got[want] {
			t.Errorf("tool %s not listed", want)
		}
	}
}
