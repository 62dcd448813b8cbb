package narrative

import (
	"fmt"
	"strings"

	"github.com/agrioracle/agri-oracle/internal/sanitize"
)

// Prompt builds the analyst prompt for a briefing. Caller-supplied text is
// sanitized before interpolation.
func Prompt(b Briefing) string {
	var sb strings.Builder

	event := sanitize.Description(b.Event)
	if event == "" {
		event = "No Major Event (Baseline Forecast)"
	}

	sb.WriteString("You are an expert economic analyst for Maharashtra agriculture.\n\n")
	fmt.Fprintf(&sb, "**Scenario Briefing:** Our simulation started from a baseline reflecting recent history (%s). ",
		b.Initial.Normalize())
	fmt.Fprintf(&sb, "We then introduced a major event: %q\n", event)

	if desc := sanitize.Description(b.Description); desc != "" {
		fmt.Fprintf(&sb, "\n**Analyst Notes:**\n%s\n", desc)
	}

	sb.WriteString("\n**Simulation Results:** Our model produced these probabilistic outcomes:\n")
	if b.Table != nil {
		sb.WriteString(b.Table.Report())
		sb.WriteString("\n")
	}

	sb.WriteString("\n**Your Task:** Translate these probabilities into a clear news-style report explaining the likely impact.")
	return sb.String()
}
