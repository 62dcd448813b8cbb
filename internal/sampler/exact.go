package sampler

import (
	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
)

// Distribution is a probability mass over all joint states, indexed by
// pattern.
type Distribution [models.NumPatterns]float64

// Exact computes the joint distribution of n analytically by pushing
// probability mass through the operation log.
func Exact(n *network.Network) Distribution {
	var d Distribution
	d[0] = 1

	for _, op := range n.Ops() {
		var next Distribution
		for i, mass := range d {
			if mass == 0 {
				continue
			}
			p := models.Pattern(i)
			switch op.Type {
			case network.OpBias:
				next[p.With(op.Factor, true)] += mass * op.P
				next[p.With(op.Factor, false)] += mass * (1 - op.P)
			case network.OpEntangle:
				if p.Bit(op.Source) {
					next[p.Flip(op.Target)] += mass * op.Coupling
					next[p] += mass * (1 - op.Coupling)
				} else {
					next[p] += mass
				}
			case network.OpShock:
				next[applyShock(p, op)] += mass
			default:
				next[p] += mass
			}
		}
		d = next
	}
	return d
}

// Probability returns the mass of p.
func (d Distribution) Probability(p models.Pattern) float64 {
	return d[p]
}

// Marginal returns the probability that factor f is in its 1 state.
func (d Distribution) Marginal(f models.Factor) float64 {
	var sum float64
	for i, mass := range d {
		if models.Pattern(i).Bit(f) {
			sum += mass
		}
	}
	return sum
}

// Sum returns the total mass, 1 up to rounding.
func (d Distribution) Sum() float64 {
	var sum float64
	for _, mass := range d {
		sum += mass
	}
	return sum
}
