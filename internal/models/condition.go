package models

import (
	"fmt"
	"strings"
)

// MonsoonState is the caller-facing starting bias for the monsoon.
type MonsoonState string

const (
	MonsoonNormal    MonsoonState = "Normal"
	MonsoonDisrupted MonsoonState = "Disrupted"
)

// SubsidyState is the caller-facing starting bias for subsidies.
type SubsidyState string

const (
	SubsidyStandard SubsidyState = "Standard"
	SubsidyHigh     SubsidyState = "High"
)

// InitialCondition holds the starting biases for a run. Zero values mean
// the base state (Normal monsoon, Standard subsidies).
type InitialCondition struct {
	Monsoon   MonsoonState `json:"monsoon,omitempty" yaml:"monsoon,omitempty"`
	Subsidies SubsidyState `json:"subsidies,omitempty" yaml:"subsidies,omitempty"`
}

// MonsoonDisrupted reports whether the condition marks the monsoon disrupted.
func (c InitialCondition) MonsoonDisrupted() bool {
	return strings.EqualFold(string(c.Monsoon), string(MonsoonDisrupted))
}

// SubsidiesHigh reports whether the condition marks subsidies high.
func (c InitialCondition) SubsidiesHigh() bool {
	return strings.EqualFold(string(c.Subsidies), string(SubsidyHigh))
}

// Normalize returns c with every field set to its canonical value.
// Unrecognized values collapse to the base state.
func (c InitialCondition) Normalize() InitialCondition {
	out := InitialCondition{Monsoon: MonsoonNormal, Subsidies: SubsidyStandard}
	if c.MonsoonDisrupted() {
		out.Monsoon = MonsoonDisrupted
	}
	if c.SubsidiesHigh() {
		out.Subsidies = SubsidyHigh
	}
	return out
}

// String implements fmt.Stringer.
func (c InitialCondition) String() string {
	n := c.Normalize()
	return fmt.Sprintf("monsoon=%s subsidies=%s", n.Monsoon, n.Subsidies)
}

// FromMap builds an InitialCondition from a loose key/value mapping such as
// {"monsoon": "Disrupted", "subsidies": "High"}. Keys are matched
// case-insensitively and unknown keys are ignored.
func FromMap(m map[string]string) InitialCondition {
	var c InitialCondition
	for k, v := range m {
		switch strings.ToLower(strings.TrimSpace(k)) {
		case "monsoon":
			c.Monsoon = MonsoonState(strings.TrimSpace(v))
		case "subsidies", "subsidy":
			c.Subsidies = SubsidyState(strings.TrimSpace(v))
		}
	}
	return c.Normalize()
}
