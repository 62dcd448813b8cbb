package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/agrioracle/agri-oracle/internal/models"
)

// FallbackGenerator writes a rule-based summary from the outcome table. It
// is used when no model provider is configured.
type FallbackGenerator struct{}

// NewFallbackGenerator creates a new FallbackGenerator.
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

// Available always returns true; the fallback needs no credentials.
func (g *FallbackGenerator) Available() bool {
	return true
}

// Narrate summarizes the leading outcome and each factor's stressed mass.
func (g *FallbackGenerator) Narrate(ctx context.Context, b Briefing) (string, error) {
	if b.Table == nil || len(b.Table.Outcomes) == 0 {
		return "", fmt.Errorf("fallback narrative: empty outcome table")
	}

	top := b.Table.Outcomes[0]
	for _, o := range b.Table.Outcomes[1:] {
		if o.Probability > top.Probability {
			top = o
		}
	}

	event := strings.TrimSpace(b.Event)
	if event == "" {
		event = "the baseline forecast"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Starting from %s and applying %s, ", b.Initial.Normalize(), event)
	fmt.Fprintf(&sb, "the most likely outcome is %s (%.1f%% of %d simulated seasons).\n",
		top.Label, top.Probability, b.Table.Total)

	for _, f := range models.Factors() {
		fmt.Fprintf(&sb, "- %s %s: %.1f%%\n", f, f.Stressed(), b.Table.Marginal(f))
	}

	switch m := b.Table.Marginal(models.Demand); {
	case m >= 50:
		sb.WriteString("Market demand is more likely than not to turn volatile; expect price swings.")
	case m >= 20:
		sb.WriteString("There is a meaningful risk of volatile demand.")
	default:
		sb.WriteString("Demand is expected to remain largely stable.")
	}
	return sb.String(), nil
}
