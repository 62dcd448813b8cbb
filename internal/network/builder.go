package network

import (
	"fmt"

	"github.com/agrioracle/agri-oracle/internal/models"
)

// Params parameterises the bias and entangle operations emitted by Builder.
type Params struct {
	// DisruptedPrior is P(Monsoon=Disrupted) when the run starts disrupted.
	DisruptedPrior float64 `json:"disrupted_prior" yaml:"disrupted_prior"`
	// NormalPrior is P(Monsoon=Disrupted) when the run starts normal.
	NormalPrior float64 `json:"normal_prior" yaml:"normal_prior"`
	// HighPrior is P(Subsidies=High) when the run starts with high subsidies.
	HighPrior float64 `json:"high_prior" yaml:"high_prior"`
	// StandardPrior is P(Subsidies=High) when the run starts with standard subsidies.
	StandardPrior float64 `json:"standard_prior" yaml:"standard_prior"`
	// Coupling is the flip probability of every entangle operation.
	Coupling float64 `json:"coupling" yaml:"coupling"`
}

// DefaultParams returns the model parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		DisruptedPrior: 0.85,
		NormalPrior:    0.15,
		HighPrior:      0.85,
		StandardPrior:  0.15,
		Coupling:       0.9,
	}
}

// Validate checks that every probability lies in [0, 1].
func (p Params) Validate() error {
	checks := []struct {
		name string
		v    float64
	}{
		{"disrupted_prior", p.DisruptedPrior},
		{"normal_prior", p.NormalPrior},
		{"high_prior", p.HighPrior},
		{"standard_prior", p.StandardPrior},
		{"coupling", p.Coupling},
	}
	for _, c := range checks {
		if c.v < 0 || c.v > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %f", c.name, c.v)
		}
	}
	return nil
}

// Topology is the fixed entangling structure, in application order.
// Both Monsoon and Subsidies act on Yield, and Yield propagates to Demand.
// Demand reads Yield before the Subsidies coupling is applied.
var Topology = [][2]models.Factor{
	{models.Monsoon, models.Yield},
	{models.Yield, models.Demand},
	{models.Subsidies, models.Yield},
}

// Builder produces base networks from initial conditions.
type Builder struct {
	params Params
}

// NewBuilder creates a Builder using the given parameters.
func NewBuilder(params Params) *Builder {
	return &Builder{params: params}
}

// Params returns the builder's parameters.
func (b *Builder) Params() Params {
	return b.params
}

// Build returns the base network for the initial condition: the Monsoon and
// Subsidies bias operations followed by the fixed topology. Building the
// same condition twice yields equal networks.
func (b *Builder) Build(initial models.InitialCondition) *Network {
	n := New()

	monsoonP := b.params.NormalPrior
	if initial.MonsoonDisrupted() {
		monsoonP = b.params.DisruptedPrior
	}
	n.Bias(models.Monsoon, monsoonP)

	subsidyP := b.params.StandardPrior
	if initial.SubsidiesHigh() {
		subsidyP = b.params.HighPrior
	}
	n.Bias(models.Subsidies, subsidyP)

	for _, edge := range Topology {
		n.Entangle(edge[0], edge[1], b.params.Coupling)
	}

	return n
}
