// Package history holds the annual reference observations that seed a
// simulation's initial conditions.
package history

import (
	_ "embed"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/agrioracle/agri-oracle/internal/models"
)

// DefaultRainfallThresholdMM is the annual rainfall below which the monsoon
// counts as disrupted.
const DefaultRainfallThresholdMM = 1000.0

// Subsidy levels recorded in the table.
const (
	SubsidyLevelStandard = "standard"
	SubsidyLevelHigh     = "high"
)

//go:embed builtin.csv
var builtinCSV string

// Record is one year of observed conditions.
type Record struct {
	Year         int     `json:"year" yaml:"year"`
	RainfallMM   float64 `json:"rainfall_mm" yaml:"rainfall_mm"`
	SubsidyLevel string  `json:"subsidy_level" yaml:"subsidy_level"`
}

// Validate checks that a record can be stored.
func (r Record) Validate() error {
	if r.Year <= 0 {
		return fmt.Errorf("year must be positive, got %d", r.Year)
	}
	if r.RainfallMM < 0 {
		return fmt.Errorf("rainfall_mm must be non-negative, got %g", r.RainfallMM)
	}
	if r.SubsidyLevel == "" {
		return fmt.Errorf("subsidy_level is required")
	}
	return nil
}

// Derive maps a record onto the initial condition it implies. Rainfall
// strictly below thresholdMM means a disrupted monsoon; a subsidy level of
// "high" (case-insensitive) means high subsidies. A non-positive threshold
// falls back to DefaultRainfallThresholdMM.
func Derive(r Record, thresholdMM float64) models.InitialCondition {
	if thresholdMM <= 0 {
		thresholdMM = DefaultRainfallThresholdMM
	}

	ic := models.InitialCondition{
		Monsoon:   models.MonsoonNormal,
		Subsidies: models.SubsidyStandard,
	}
	if r.RainfallMM < thresholdMM {
		ic.Monsoon = models.MonsoonDisrupted
	}
	if strings.EqualFold(strings.TrimSpace(r.SubsidyLevel), SubsidyLevelHigh) {
		ic.Subsidies = models.SubsidyHigh
	}
	return ic
}

// Builtin returns the built-in reference table, ordered by year.
func Builtin() []Record {
	records, err := ParseCSV(strings.NewReader(builtinCSV))
	if err != nil {
		panic(fmt.Sprintf("history: built-in table is malformed: %v", err))
	}
	return records
}

// ParseCSV reads records from CSV with a header row naming the columns
// year, rainfall_mm and subsidy_level (in any order).
func ParseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"year", "rainfall_mm", "subsidy_level"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		year, err := strconv.Atoi(strings.TrimSpace(row[cols["year"]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid year: %w", line, err)
		}
		rainfall, err := strconv.ParseFloat(strings.TrimSpace(row[cols["rainfall_mm"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid rainfall_mm: %w", line, err)
		}

		rec := Record{
			Year:         year,
			RainfallMM:   rainfall,
			SubsidyLevel: strings.ToLower(strings.TrimSpace(row[cols["subsidy_level"]])),
		}
		if err := rec.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
