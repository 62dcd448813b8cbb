package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/shock"
)

func TestParse_YAML(t *testing.T) {
	data := []byte(`
name: Dry spell
description: Drought after a weak monsoon
initial:
  monsoon: disrupted
  subsidies: Standard
shocks:
  - Severe Drought Hits
shots: 2048
seed: 7
order: probability
`)
	s, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Initial.Monsoon != models.MonsoonDisrupted {
		t.Errorf("Initial.Monsoon = %q, want %q", s.Initial.Monsoon, models.MonsoonDisrupted)
	}
	if s.Initial.Subsidies != models.SubsidyStandard {
		t.Errorf("Initial.Subsidies = %q", s.Initial.Subsidies)
	}
	if len(s.Shocks) != 1 || s.Shocks[0] != shock.SevereDrought {
		t.Errorf("Shocks = %v", s.Shocks)
	}
	if s.Shots != 2048 || s.Seed != 7 || s.Order != "probability" {
		t.Errorf("Shots/Seed/Order = %d/%d/%q", s.Shots, s.Seed, s.Order)
	}
	if s.Title() != "Dry spell" {
		t.Errorf("Title() = %q", s.Title())
	}
}

func TestParse_JSON(t *testing.T) {
	s, err := Parse([]byte(`{"initial":{"subsidies":"High"},"shocks":["A","B"]}`))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Initial.Subsidies != models.SubsidyHigh || s.Initial.Monsoon != models.MonsoonNormal {
		t.Errorf("Initial = %+v", s.Initial)
	}
	if s.Title() != "A + B" {
		t.Errorf("Title() = %q", s.Title())
	}
}

func TestParse_Empty(t *testing.T) {
	s, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Title() != "Baseline" {
		t.Errorf("Title() = %q", s.Title())
	}
	if s.Initial != (models.InitialCondition{Monsoon: models.MonsoonNormal, Subsidies: models.SubsidyStandard}) {
		t.Errorf("Initial = %+v", s.Initial)
	}
}

func TestParse_UnknownInitialValueFallsBack(t *testing.T) {
	s, err := Parse([]byte("initial:\n  monsoon: Stormy\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if s.Initial.Monsoon != models.MonsoonNormal {
		t.Errorf("Initial.Monsoon = %q, want base value", s.Initial.Monsoon)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"zero shots", "shots: 0\n"},
		{"negative shots", "shots: -5\n"},
		{"string shots", "shots: many\n"},
		{"unknown field", "weather: sunny\n"},
		{"unknown initial field", "initial:\n  rainfall: 900\n"},
		{"shocks not a list", "shocks: Severe Drought Hits\n"},
		{"bad order", "order: random\n"},
		{"not an object", "- a\n- b\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Schema != ScenarioSchema {
				t.Errorf("Schema = %q", verr.Schema)
			}
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	if _, err := Parse([]byte("initial: [unclosed")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trade.yaml")
	if err := os.WriteFile(path, []byte("shocks: [International Trade Ban Reduces Demand]\n"), 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if len(s.Shocks) != 1 || s.Shocks[0] != shock.TradeBan {
		t.Errorf("Shocks = %v", s.Shocks)
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestValidateJSON_SimulateRequest(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"type":"SIMULATE","request_id":"r1","scenario":{"shocks":["Severe Drought Hits"],"shots":100}}`, false},
		{"empty scenario", `{"type":"SIMULATE","scenario":{}}`, false},
		{"wrong type", `{"type":"HELLO","scenario":{}}`, true},
		{"missing scenario", `{"type":"SIMULATE"}`, true},
		{"nested invalid scenario", `{"type":"SIMULATE","scenario":{"shots":0}}`, true},
		{"extra field", `{"type":"SIMULATE","scenario":{},"x":1}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateJSON(SimulateSchema, []byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_UnknownSchema(t *testing.T) {
	if err := Validate("nope.schema.json", map[string]any{}); err == nil {
		t.Error("expected error for unknown schema")
	}
}
