package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigSetGet(t *testing.T) {
	home := isolateHome(t)

	if _, err := execute(t, "config", "set", "simulation.order", "probability"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, ".oracle", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	out, err := execute(t, "config", "get", "simulation.order")
	if err != nil {
		t.Fatalf("config get failed: %v", err)
	}
	if strings.TrimSpace(out) != "simulation.order = probability" {
		t.Errorf("get output = %q", out)
	}
}

func TestConfigSet_Rejects(t *testing.T) {
	isolateHome(t)

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown key", "llm.comparison_model", "x"},
		{"not a number", "simulation.shots", "many"},
		{"out of range", "model.coupling", "1.5"},
		{"bad provider", "llm.provider", "subagent"},
		{"bad bool", "llm.enabled", "sometimes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, "config", "set", tt.key, tt.value); err == nil {
				t.Errorf("expected error setting %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestConfigList_RedactsAPIKey(t *testing.T) {
	isolateHome(t)

	if _, err := execute(t, "config", "set", "llm.api_key", "sk-ant-1234567890abcdef"); err != nil {
		t.Fatalf("config set failed: %v", err)
	}

	out, err := execute(t, "config", "list")
	if err != nil {
		t.Fatalf("config list failed: %v", err)
	}
	if strings.Contains(out, "1234567890") {
		t.Error("config list leaked the API key")
	}
	if !strings.Contains(out, "sk-a...cdef") {
		t.Errorf("expected redacted key:\n%s", out)
	}

	out, err = execute(t, "config", "list", "--json")
	if err != nil {
		t.Fatalf("config list --json failed: %v", err)
	}
	if strings.Contains(out, "1234567890") {
		t.Error("config list --json leaked the API key")
	}
}
