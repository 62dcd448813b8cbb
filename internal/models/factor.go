// Package models defines the core data types for the agricultural scenario model.
package models

import (
	"fmt"
	"strings"
)

// Factor identifies one of the four binary variables tracked by the model.
// The numeric value is the factor's fixed register position.
type Factor int

const (
	// Monsoon is the rainfall state: Normal (0) or Disrupted (1).
	Monsoon Factor = iota
	// Yield is the crop yield: Average (0) or Poor (1).
	Yield
	// Subsidies is the subsidy level: Standard (0) or High (1).
	Subsidies
	// Demand is the market demand: Stable (0) or Volatile (1).
	Demand
)

// NumFactors is the size of the factor register.
const NumFactors = 4

// factorNames maps register positions to display names.
var factorNames = [NumFactors]string{"Monsoon", "Yield", "Subsidies", "Demand"}

// factorLabels maps each factor's bit value to its state label.
var factorLabels = [NumFactors][2]string{
	{"Normal", "Disrupted"},
	{"Average", "Poor"},
	{"Standard", "High"},
	{"Stable", "Volatile"},
}

// Factors returns all factors in register order.
func Factors() []Factor {
	return []Factor{Monsoon, Yield, Subsidies, Demand}
}

// Index returns the factor's register position.
func (f Factor) Index() int {
	return int(f)
}

// Valid reports whether f is a known register position.
func (f Factor) Valid() bool {
	return f >= 0 && f < NumFactors
}

// String returns the factor's display name.
func (f Factor) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Factor(%d)", int(f))
	}
	return factorNames[f]
}

// Label returns the state label for the given bit value of f,
// e.g. Monsoon.Label(1) == "Disrupted".
func (f Factor) Label(bit bool) string {
	if !f.Valid() {
		return ""
	}
	if bit {
		return factorLabels[f][1]
	}
	return factorLabels[f][0]
}

// Stressed returns the label of the factor's 1 state.
func (f Factor) Stressed() string {
	return f.Label(true)
}

// ParseFactor resolves a factor by display name (case-insensitive).
func ParseFactor(s string) (Factor, error) {
	for i, name := range factorNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Factor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown factor %q", s)
}
