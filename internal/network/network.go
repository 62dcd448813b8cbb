// Package network builds correlation networks over the factor register.
//
// A Network is an append-only operation log: bias operations set each
// factor's prior, entangle operations make one factor's state depend on
// another's, and shock operations perturb a factor after the fixed
// structure. The log is executed, in order, by the sampler.
package network

import (
	"fmt"

	"github.com/agrioracle/agri-oracle/internal/models"
)

// OpType tags the variant carried by an Op.
type OpType string

const (
	OpBias     OpType = "bias"
	OpEntangle OpType = "entangle"
	OpShock    OpType = "shock"
)

// ShockKind is the deterministic effect of a shock operation.
type ShockKind string

const (
	// ShockNone leaves the network state unchanged.
	ShockNone ShockKind = "none"
	// ShockFlip inverts the factor. Two flips on the same factor cancel.
	ShockFlip ShockKind = "flip"
	// ShockForce drives the factor into its stressed (1) state.
	// Repeated forces reinforce.
	ShockForce ShockKind = "force"
)

// Op is a single entry of the operation log. Only the fields relevant to
// Type are meaningful.
type Op struct {
	Type OpType `json:"type"`

	// Factor is the biased or shocked factor (bias, shock).
	Factor models.Factor `json:"factor"`
	// P is the probability of drawing the factor as 1 (bias).
	P float64 `json:"p,omitempty"`

	// Source and Target are the entangled factors (entangle).
	Source models.Factor `json:"source,omitempty"`
	Target models.Factor `json:"target,omitempty"`
	// Coupling is the probability that a realized 1 on Source flips Target.
	Coupling float64 `json:"coupling,omitempty"`

	// Name and Kind describe a shock (shock).
	Name string    `json:"name,omitempty"`
	Kind ShockKind `json:"kind,omitempty"`
}

// String renders the op for logs and diagnostics.
func (o Op) String() string {
	switch o.Type {
	case OpBias:
		return fmt.Sprintf("bias(%s, p=%.2f)", o.Factor, o.P)
	case OpEntangle:
		return fmt.Sprintf("entangle(%s->%s, c=%.2f)", o.Source, o.Target, o.Coupling)
	case OpShock:
		return fmt.Sprintf("shock(%s %s %q)", o.Kind, o.Factor, o.Name)
	default:
		return fmt.Sprintf("op(%s)", o.Type)
	}
}

// Network is an ordered operation log over the factor register.
// The zero value is an empty network.
type Network struct {
	ops []Op
}

// New returns an empty network.
func New() *Network {
	return &Network{}
}

// Bias appends a bias operation.
func (n *Network) Bias(f models.Factor, p float64) *Network {
	n.ops = append(n.ops, Op{Type: OpBias, Factor: f, P: p})
	return n
}

// Entangle appends an entangle operation from source to target.
func (n *Network) Entangle(source, target models.Factor, coupling float64) *Network {
	n.ops = append(n.ops, Op{Type: OpEntangle, Source: source, Target: target, Coupling: coupling})
	return n
}

// Shock appends a shock operation.
func (n *Network) Shock(name string, f models.Factor, kind ShockKind) *Network {
	n.ops = append(n.ops, Op{Type: OpShock, Name: name, Factor: f, Kind: kind})
	return n
}

// Ops returns a copy of the operation log.
func (n *Network) Ops() []Op {
	out := make([]Op, len(n.ops))
	copy(out, n.ops)
	return out
}

// Len returns the number of operations.
func (n *Network) Len() int {
	return len(n.ops)
}

// Clone returns an independent copy of n.
func (n *Network) Clone() *Network {
	return &Network{ops: n.Ops()}
}

// Equal reports whether two networks carry identical operation logs.
func (n *Network) Equal(other *Network) bool {
	if n == nil || other == nil {
		return n == other
	}
	if len(n.ops) != len(other.ops) {
		return false
	}
	for i := range n.ops {
		if n.ops[i] != other.ops[i] {
			return false
		}
	}
	return true
}

// Shocks returns the shock operations in application order.
func (n *Network) Shocks() []Op {
	return n.filter(OpShock)
}

// Biases returns the bias operations in log order.
func (n *Network) Biases() []Op {
	return n.filter(OpBias)
}

// Entanglements returns the entangle operations in log order.
func (n *Network) Entanglements() []Op {
	return n.filter(OpEntangle)
}

func (n *Network) filter(t OpType) []Op {
	var out []Op
	for _, op := range n.ops {
		if op.Type == t {
			out = append(out, op)
		}
	}
	return out
}
