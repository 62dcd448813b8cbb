package sampler

import (
	"encoding/json"

	"github.com/agrioracle/agri-oracle/internal/models"
)

// SampleSet is a frequency table over joint states. It remembers the order
// in which patterns were first observed.
type SampleSet struct {
	counts map[models.Pattern]int
	order  []models.Pattern
	total  int
}

// NewSampleSet returns an empty SampleSet.
func NewSampleSet() *SampleSet {
	return &SampleSet{counts: make(map[models.Pattern]int)}
}

// Add records n occurrences of p.
func (s *SampleSet) Add(p models.Pattern, n int) {
	if n <= 0 {
		return
	}
	if _, seen := s.counts[p]; !seen {
		s.order = append(s.order, p)
	}
	s.counts[p] += n
	s.total += n
}

// Merge adds every count of other into s. Patterns new to s are appended in
// other's first-seen order.
func (s *SampleSet) Merge(other *SampleSet) {
	for _, p := range other.order {
		s.Add(p, other.counts[p])
	}
}

// Count returns the number of occurrences of p.
func (s *SampleSet) Count(p models.Pattern) int {
	return s.counts[p]
}

// Total returns the sum of all counts.
func (s *SampleSet) Total() int {
	return s.total
}

// Len returns the number of distinct observed patterns.
func (s *SampleSet) Len() int {
	return len(s.order)
}

// Patterns returns the observed patterns in first-seen order.
func (s *SampleSet) Patterns() []models.Pattern {
	out := make([]models.Pattern, len(s.order))
	copy(out, s.order)
	return out
}

// Counts returns the counts keyed by readout-order bitstring, e.g. "1001".
func (s *SampleSet) Counts() map[string]int {
	out := make(map[string]int, len(s.counts))
	for p, n := range s.counts {
		out[p.String()] = n
	}
	return out
}

// MarshalJSON encodes the set as a bitstring -> count object.
func (s *SampleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Counts())
}
