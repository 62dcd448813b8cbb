// Package decoder turns raw joint-state frequencies into a labelled
// probability table.
package decoder

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/sampler"
)

// Order selects how OutcomeTable entries are sequenced.
type Order string

const (
	// OrderFirstSeen lists outcomes in the order their patterns were first
	// observed during sampling.
	OrderFirstSeen Order = "first-seen"
	// OrderProbability lists outcomes by descending probability, ties broken
	// by pattern value.
	OrderProbability Order = "probability"
)

// ParseOrder resolves an order name. Empty means OrderFirstSeen.
func ParseOrder(s string) (Order, error) {
	switch Order(strings.ToLower(strings.TrimSpace(s))) {
	case "", OrderFirstSeen:
		return OrderFirstSeen, nil
	case OrderProbability:
		return OrderProbability, nil
	default:
		return "", fmt.Errorf("invalid order %q (valid: first-seen, probability)", s)
	}
}

// EmptySampleSetError is returned when there is nothing to decode.
type EmptySampleSetError struct{}

func (e *EmptySampleSetError) Error() string {
	return "cannot decode an empty sample set"
}

// Outcome is one labelled joint state.
type Outcome struct {
	Pattern     string            `json:"pattern"`
	Label       string            `json:"label"`
	States      map[string]string `json:"states"`
	Count       int               `json:"count"`
	Probability float64           `json:"probability"` // percent, 0-100
}

// OutcomeTable is the decoded result of a run.
type OutcomeTable struct {
	Outcomes []Outcome `json:"outcomes"`
	Total    int       `json:"total"`
	Order    Order     `json:"order"`
}

// Decode maps every observed pattern to its composite label and computes
// probability = 100 * count / total.
func Decode(samples *sampler.SampleSet, order Order) (*OutcomeTable, error) {
	if samples == nil || samples.Total() == 0 {
		return nil, &EmptySampleSetError{}
	}
	if order == "" {
		order = OrderFirstSeen
	}

	total := samples.Total()
	patterns := samples.Patterns()
	if order == OrderProbability {
		sort.SliceStable(patterns, func(i, j int) bool {
			ci, cj := samples.Count(patterns[i]), samples.Count(patterns[j])
			if ci != cj {
				return ci > cj
			}
			return patterns[i] < patterns[j]
		})
	}

	table := &OutcomeTable{
		Outcomes: make([]Outcome, 0, len(patterns)),
		Total:    total,
		Order:    order,
	}
	for _, p := range patterns {
		count := samples.Count(p)
		table.Outcomes = append(table.Outcomes, newOutcome(p, count, 100*float64(count)/float64(total)))
	}
	return table, nil
}

// DecodeDistribution renders an exact distribution as a table, listing
// every state with nonzero mass by descending probability. Counts are zero.
func DecodeDistribution(d sampler.Distribution) *OutcomeTable {
	type entry struct {
		p    models.Pattern
		mass float64
	}
	var entries []entry
	for i, mass := range d {
		if mass > 0 {
			entries = append(entries, entry{models.Pattern(i), mass})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].mass > entries[j].mass
	})

	table := &OutcomeTable{Order: OrderProbability}
	for _, e := range entries {
		table.Outcomes = append(table.Outcomes, newOutcome(e.p, 0, 100*e.mass))
	}
	return table
}

func newOutcome(p models.Pattern, count int, probability float64) Outcome {
	states := make(map[string]string, models.NumFactors)
	for f, label := range p.States() {
		states[f.String()] = label
	}
	return Outcome{
		Pattern:     p.String(),
		Label:       p.Label(),
		States:      states,
		Count:       count,
		Probability: probability,
	}
}

// Sum returns the total probability of the table, 100 up to rounding.
func (t *OutcomeTable) Sum() float64 {
	var sum float64
	for _, o := range t.Outcomes {
		sum += o.Probability
	}
	return sum
}

// Marginal returns the percentage of mass in which factor f is in its
// stressed state.
func (t *OutcomeTable) Marginal(f models.Factor) float64 {
	var sum float64
	stressed := f.Stressed()
	for _, o := range t.Outcomes {
		if o.States[f.String()] == stressed {
			sum += o.Probability
		}
	}
	return sum
}

// Report renders the table as one bullet line per outcome, the format
// handed to the narrative generator.
func (t *OutcomeTable) Report() string {
	lines := make([]string, 0, len(t.Outcomes))
	for _, o := range t.Outcomes {
		lines = append(lines, fmt.Sprintf("- Outcome: %s. Probability: %.1f%%", o.Label, o.Probability))
	}
	return strings.Join(lines, "\n")
}
