// Package visualization renders correlation networks in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat resolves a format name. Empty means FormatDOT.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case "", FormatDOT:
		return FormatDOT, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid format %q (valid: dot, json)", s)
	}
}

// shockStyles maps shock kinds to DOT edge styles.
var shockStyles = map[network.ShockKind]string{
	network.ShockForce: "bold",
	network.ShockFlip:  "dashed",
	network.ShockNone:  "dotted",
}

// factorColors maps factors to DOT fill colors.
var factorColors = map[models.Factor]string{
	models.Monsoon:   "steelblue",
	models.Yield:     "mediumseagreen",
	models.Subsidies: "goldenrod",
	models.Demand:    "tomato",
}

// priors returns each factor's bias probability. Factors without a bias op
// start in their base state.
func priors(n *network.Network) map[models.Factor]float64 {
	p := make(map[models.Factor]float64, models.NumFactors)
	for _, op := range n.Biases() {
		p[op.Factor] = op.P
	}
	return p
}

// RenderDOT produces a Graphviz DOT representation of the network: one node
// per factor labelled with its prior, one edge per entanglement labelled with
// its coupling, and shock nodes numbered in application order.
func RenderDOT(n *network.Network) string {
	p := priors(n)

	var b strings.Builder
	b.WriteString("digraph oracle {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [fontname=\"Helvetica\", fontsize=10];\n\n")

	for _, f := range models.Factors() {
		label := fmt.Sprintf("%s\\nP(%s)=%.2f", f, f.Stressed(), p[f])
		b.WriteString(fmt.Sprintf("  %q [label=\"%s\", fillcolor=%q];\n", f.String(), label, factorColors[f]))
	}
	b.WriteString("\n")

	for _, op := range n.Entanglements() {
		b.WriteString(fmt.Sprintf("  %q -> %q [label=\"c=%.2f\", penwidth=%.1f];\n",
			op.Source.String(), op.Target.String(), op.Coupling, 1+2*op.Coupling))
	}

	shocks := n.Shocks()
	if len(shocks) > 0 {
		b.WriteString("\n")
	}
	for i, op := range shocks {
		id := fmt.Sprintf("shock%d", i+1)
		b.WriteString(fmt.Sprintf("  %q [label=%q, shape=octagon, fillcolor=\"lightgray\"];\n",
			id, fmt.Sprintf("%d. %s", i+1, truncate(op.Name, 40))))
		b.WriteString(fmt.Sprintf("  %q -> %q [label=%q, style=%s];\n",
			id, op.Factor.String(), string(op.Kind), shockStyles[op.Kind]))
	}

	b.WriteString("}\n")
	return b.String()
}

// RenderJSON produces a JSON-friendly graph with nodes, edges and shocks arrays.
func RenderJSON(n *network.Network) map[string]interface{} {
	p := priors(n)

	nodes := make([]map[string]interface{}, 0, models.NumFactors)
	for _, f := range models.Factors() {
		nodes = append(nodes, map[string]interface{}{
			"id":       f.String(),
			"index":    f.Index(),
			"stressed": f.Stressed(),
			"prior":    p[f],
		})
	}

	edges := make([]map[string]interface{}, 0)
	for _, op := range n.Entanglements() {
		edges = append(edges, map[string]interface{}{
			"source":   op.Source.String(),
			"target":   op.Target.String(),
			"coupling": op.Coupling,
		})
	}

	shocks := make([]map[string]interface{}, 0)
	for i, op := range n.Shocks() {
		shocks = append(shocks, map[string]interface{}{
			"order":  i + 1,
			"name":   op.Name,
			"factor": op.Factor.String(),
			"kind":   string(op.Kind),
		})
	}

	return map[string]interface{}{
		"nodes":       nodes,
		"edges":       edges,
		"shocks":      shocks,
		"node_count":  len(nodes),
		"edge_count":  len(edges),
		"shock_count": len(shocks),
	}
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
