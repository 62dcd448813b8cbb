// Package shock holds the catalog of named "what-if" events and applies
// them to correlation networks.
package shock

import (
	"fmt"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
)

// Catalog event names.
const (
	SevereDrought   = "Severe Drought Hits"
	TradeBan        = "International Trade Ban Reduces Demand"
	SubsidyPackage  = "Govt. Announces New High-Subsidy Package"
	NoMajorEvent    = "No Major Event (Baseline Forecast)"
	DefaultSelected = NoMajorEvent
)

// Shock is a catalog entry: a named, deterministic transform of one factor.
type Shock struct {
	Name        string            `json:"name" yaml:"name"`
	Factor      models.Factor     `json:"factor" yaml:"factor"`
	Kind        network.ShockKind `json:"kind" yaml:"kind"`
	Description string            `json:"description" yaml:"description"`
}

// catalog is the fixed, ordered set of selectable shocks. Stress events
// force their factor rather than flip it, so a shock reinforces a state the
// initial condition already implies instead of cancelling it.
var catalog = []Shock{
	{
		Name:        SevereDrought,
		Factor:      models.Monsoon,
		Kind:        network.ShockForce,
		Description: "Monsoon fails; rainfall is driven into the disrupted state.",
	},
	{
		Name:        TradeBan,
		Factor:      models.Demand,
		Kind:        network.ShockForce,
		Description: "Export markets close; demand is driven into the volatile state.",
	},
	{
		Name:        SubsidyPackage,
		Factor:      models.Subsidies,
		Kind:        network.ShockForce,
		Description: "A new relief package lifts subsidies to the high state.",
	},
	{
		Name:        NoMajorEvent,
		Factor:      models.Monsoon,
		Kind:        network.ShockNone,
		Description: "Baseline forecast; the network is left unchanged.",
	},
}

// UnknownShockError is returned when a shock name is not in the catalog.
type UnknownShockError struct {
	Name string
}

func (e *UnknownShockError) Error() string {
	return fmt.Sprintf("unknown shock %q", e.Name)
}

// Catalog returns a copy of the catalog in display order.
func Catalog() []Shock {
	out := make([]Shock, len(catalog))
	copy(out, catalog)
	return out
}

// Names returns the catalog names in display order.
func Names() []string {
	names := make([]string, len(catalog))
	for i, s := range catalog {
		names[i] = s.Name
	}
	return names
}

// Lookup resolves a shock by exact name.
func Lookup(name string) (Shock, error) {
	for _, s := range catalog {
		if s.Name == name {
			return s, nil
		}
	}
	return Shock{}, &UnknownShockError{Name: name}
}

// Resolve looks up every name, failing on the first unknown one.
func Resolve(names []string) ([]Shock, error) {
	shocks := make([]Shock, 0, len(names))
	for _, name := range names {
		s, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		shocks = append(shocks, s)
	}
	return shocks, nil
}

// Apply returns a copy of n with the named shocks appended in the given
// order. Duplicates are applied as many times as they appear. All names are
// resolved before anything is appended, so an unknown name leaves no
// partially shocked network behind. n itself is never modified.
func Apply(n *network.Network, names []string) (*network.Network, error) {
	shocks, err := Resolve(names)
	if err != nil {
		return nil, err
	}
	return ApplyShocks(n, shocks), nil
}

// ApplyShocks appends already-resolved shocks to a copy of n.
func ApplyShocks(n *network.Network, shocks []Shock) *network.Network {
	out := n.Clone()
	for _, s := range shocks {
		out.Shock(s.Name, s.Factor, s.Kind)
	}
	return out
}
