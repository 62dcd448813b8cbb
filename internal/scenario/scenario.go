// Package scenario loads what-if scenario documents from YAML or JSON and
// validates them, and the websocket simulate requests that embed them,
// against embedded JSON Schemas.
package scenario

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/agrioracle/agri-oracle/internal/models"
)

const schemaBase = "https://agri-oracle.dev/schemas/"

// Schema file names.
const (
	ScenarioSchema = "scenario.schema.json"
	SimulateSchema = "simulate.schema.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Scenario is a reusable what-if run description.
type Scenario struct {
	Name        string                  `json:"name,omitempty" yaml:"name,omitempty"`
	Description string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Initial     models.InitialCondition `json:"initial" yaml:"initial"`
	FromHistory bool                    `json:"from_history,omitempty" yaml:"from_history,omitempty"`
	Shocks      []string                `json:"shocks,omitempty" yaml:"shocks,omitempty"`
	Shots       int                     `json:"shots,omitempty" yaml:"shots,omitempty"`
	Seed        uint64                  `json:"seed,omitempty" yaml:"seed,omitempty"`
	Order       string                  `json:"order,omitempty" yaml:"order,omitempty"`
	Narrate     bool                    `json:"narrate,omitempty" yaml:"narrate,omitempty"`
}

// Title returns a display name for the scenario: its name, else the joined
// shock names, else "Baseline".
func (s *Scenario) Title() string {
	if s.Name != "" {
		return s.Name
	}
	if len(s.Shocks) > 0 {
		return strings.Join(s.Shocks, " + ")
	}
	return "Baseline"
}

// ValidationError reports a document that does not satisfy its schema.
type ValidationError struct {
	Schema string
	Err    error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", strings.TrimSuffix(e.Schema, ".schema.json"), e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func schemas() (map[string]*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		for _, name := range []string{ScenarioSchema, SimulateSchema} {
			data, err := schemaFS.ReadFile("schemas/" + name)
			if err != nil {
				compileErr = fmt.Errorf("reading schema %s: %w", name, err)
				return
			}
			if err := c.AddResource(schemaBase+name, bytes.NewReader(data)); err != nil {
				compileErr = fmt.Errorf("adding schema %s: %w", name, err)
				return
			}
		}
		compiled = make(map[string]*jsonschema.Schema, 2)
		for _, name := range []string{ScenarioSchema, SimulateSchema} {
			s, err := c.Compile(schemaBase + name)
			if err != nil {
				compileErr = fmt.Errorf("compiling schema %s: %w", name, err)
				return
			}
			compiled[name] = s
		}
	})
	return compiled, compileErr
}

// Validate checks a decoded JSON document (maps, slices, json.Number,
// strings, bools) against the named schema.
func Validate(schemaName string, doc any) error {
	all, err := schemas()
	if err != nil {
		return err
	}
	s, ok := all[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema %q", schemaName)
	}
	if err := s.Validate(doc); err != nil {
		return &ValidationError{Schema: schemaName, Err: err}
	}
	return nil
}

// ValidateJSON decodes raw JSON and validates it against the named schema.
func ValidateJSON(schemaName string, raw []byte) error {
	doc, err := decodeJSON(raw)
	if err != nil {
		return err
	}
	return Validate(schemaName, doc)
}

// Parse decodes a scenario from YAML or JSON (JSON is valid YAML) and
// validates it before returning.
func Parse(data []byte) (*Scenario, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if raw == nil {
		raw = map[string]any{}
	}

	// Round-trip through JSON so the validator sees JSON-native types.
	asJSON, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("converting scenario: %w", err)
	}
	if err := ValidateJSON(ScenarioSchema, asJSON); err != nil {
		return nil, err
	}

	var s Scenario
	if err := json.Unmarshal(asJSON, &s); err != nil {
		return nil, fmt.Errorf("decoding scenario: %w", err)
	}
	s.Initial = s.Initial.Normalize()
	return &s, nil
}

// LoadFile reads and parses a scenario file.
func LoadFile(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario file: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func decodeJSON(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding json: %w", err)
	}
	return doc, nil
}
