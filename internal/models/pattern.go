package models

import (
	"fmt"
	"strings"
)

// Pattern is a 4-bit joint state of the factor register. Bit i holds the
// realized state of the factor at register position i.
type Pattern uint8

// NumPatterns is the number of distinct joint states.
const NumPatterns = 1 << NumFactors

// Bit reports the state of factor f in p.
func (p Pattern) Bit(f Factor) bool {
	return p&(1<<uint(f)) != 0
}

// With returns p with factor f set to bit.
func (p Pattern) With(f Factor, bit bool) Pattern {
	if bit {
		return p | 1<<uint(f)
	}
	return p &^ (1 << uint(f))
}

// Flip returns p with factor f inverted.
func (p Pattern) Flip(f Factor) Pattern {
	return p ^ 1<<uint(f)
}

// String renders p as a bitstring in readout order: the highest register
// position (Demand) first and Monsoon last, e.g. "1001".
func (p Pattern) String() string {
	var b strings.Builder
	for i := NumFactors - 1; i >= 0; i-- {
		if p.Bit(Factor(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// ParsePattern parses a readout-order bitstring as produced by String.
func ParsePattern(s string) (Pattern, error) {
	if len(s) != NumFactors {
		return 0, fmt.Errorf("pattern %q: want %d bits", s, NumFactors)
	}
	var p Pattern
	for i := 0; i < NumFactors; i++ {
		f := Factor(NumFactors - 1 - i)
		switch s[i] {
		case '0':
		case '1':
			p = p.With(f, true)
		default:
			return 0, fmt.Errorf("pattern %q: invalid bit %q", s, s[i])
		}
	}
	return p, nil
}

// States returns the state label of every factor in register order.
func (p Pattern) States() map[Factor]string {
	states := make(map[Factor]string, NumFactors)
	for _, f := range Factors() {
		states[f] = f.Label(p.Bit(f))
	}
	return states
}

// Label renders the composite outcome label,
// e.g. "Monsoon=Disrupted, Yield=Poor, Subsidies=Standard, Demand=Volatile".
func (p Pattern) Label() string {
	parts := make([]string, 0, NumFactors)
	for _, f := range Factors() {
		parts = append(parts, f.String()+"="+f.Label(p.Bit(f)))
	}
	return strings.Join(parts, ", ")
}
