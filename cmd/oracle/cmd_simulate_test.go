package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSimulateCmd_Text(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	out, err := execute(t, "simulate", "--root", root,
		"--monsoon", "Disrupted",
		"--shock", "Severe Drought Hits",
		"--shots", "500", "--seed", "9", "--workers", "2")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	for _, want := range []string{
		"Event:   Severe Drought Hits",
		"Initial: monsoon=Disrupted subsidies=Standard",
		"Shots:   500 (seed 9)",
		"- Outcome: ",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulateCmd_JSONReproducible(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	args := []string{"simulate", "--root", root, "--json", "--shots", "300", "--seed", "77", "--workers", "1", "--order", "probability"}

	first, err := execute(t, args...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	second, err := execute(t, args...)
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}

	a := decodeJSON(t, first)["result"].(map[string]interface{})
	b := decodeJSON(t, second)["result"].(map[string]interface{})
	if a["run_id"] == b["run_id"] {
		t.Error("run IDs should differ")
	}
	ta := a["table"].(map[string]interface{})
	tb := b["table"].(map[string]interface{})
	if ta["order"] != "probability" {
		t.Errorf("order = %v", ta["order"])
	}
	oa := ta["outcomes"].([]interface{})
	ob := tb["outcomes"].([]interface{})
	if len(oa) != len(ob) {
		t.Fatalf("outcome counts differ: %d vs %d", len(oa), len(ob))
	}
	for i := range oa {
		if oa[i].(map[string]interface{})["count"] != ob[i].(map[string]interface{})["count"] {
			t.Fatalf("outcome %d differs between seeded runs", i)
		}
	}
}

func TestSimulateCmd_Scenario(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()
	path := filepath.Join(root, "kharif.yaml")
	content := `name: Kharif stress test
initial:
  monsoon: Disrupted
  subsidies: High
shocks:
  - International Trade Ban Reduces Demand
shots: 200
seed: 5
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "simulate", "--root", root, "--scenario", path, "--shots", "250")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	for _, want := range []string{
		"Event:   Kharif stress test",
		"Initial: monsoon=Disrupted subsidies=High",
		"Shots:   250 (seed 5)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestSimulateCmd_Exact(t *testing.T) {
	isolateHome(t)
	out, err := execute(t, "simulate", "--root", t.TempDir(), "--exact")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if !strings.Contains(out, "Mode:    exact distribution") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSimulateCmd_FromHistory(t *testing.T) {
	isolateHome(t)
	out, err := execute(t, "simulate", "--root", t.TempDir(), "--from-history", "--shots", "50")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if !strings.Contains(out, "History: 2025 (rainfall 950mm, standard subsidies)") {
		t.Errorf("output:\n%s", out)
	}
	if !strings.Contains(out, "Initial: monsoon=Disrupted subsidies=Standard") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSimulateCmd_NarrateFallback(t *testing.T) {
	isolateHome(t)
	out, err := execute(t, "simulate", "--root", t.TempDir(), "--narrate", "--shots", "100")
	if err != nil {
		t.Fatalf("simulate failed: %v", err)
	}
	if !strings.Contains(out, "Report:\nStarting from") {
		t.Errorf("expected rule-based report:\n%s", out)
	}
}

func TestSimulateCmd_Errors(t *testing.T) {
	isolateHome(t)
	root := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"unknown shock", []string{"--shock", "Locust Swarm"}, `unknown shock "Locust Swarm"`},
		{"zero shots", []string{"--shots", "0"}, "--shots must be positive"},
		{"bad order", []string{"--order", "random"}, "order"},
		{"missing scenario", []string{"--scenario", filepath.Join(root, "nope.yaml")}, "nope.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"simulate", "--root", root}, tt.args...)
			_, err := execute(t, args...)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
