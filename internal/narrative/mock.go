package narrative

import (
	"context"
	"sync"
)

// MockGenerator implements Generator for testing purposes.
// It returns a configured text or error and records every briefing it sees.
type MockGenerator struct {
	mu sync.Mutex

	text      string
	err       error
	available bool

	Calls []Briefing
}

// NewMockGenerator creates a new MockGenerator that is available and
// returns an empty narrative.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{available: true, Calls: make([]Briefing, 0)}
}

// WithText configures the narrative returned by Narrate.
func (m *MockGenerator) WithText(text string) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text = text
	return m
}

// WithError configures the error returned by Narrate.
func (m *MockGenerator) WithError(err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithAvailable configures whether Available() returns true or false.
func (m *MockGenerator) WithAvailable(available bool) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.available = available
	return m
}

// Narrate implements Generator.Narrate.
func (m *MockGenerator) Narrate(ctx context.Context, b Briefing) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, b)
	if m.err != nil {
		return "", m.err
	}
	return m.text, nil
}

// Available implements Generator.Available.
func (m *MockGenerator) Available() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available
}

// CallCount returns the number of times Narrate was called.
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
