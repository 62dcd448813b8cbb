// Package sampler executes correlation networks repeatedly and aggregates the
// realized joint states into a SampleSet.
package sampler

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
)

// DefaultShots is the shot count used when the caller does not choose one.
const DefaultShots = 1024

// ctxCheckInterval is how many shots a worker runs between context checks.
const ctxCheckInterval = 1024

// InvalidShotsError is returned when the shot count is not positive.
type InvalidShotsError struct {
	Shots int
}

func (e *InvalidShotsError) Error() string {
	return fmt.Sprintf("shots must be a positive integer, got %d", e.Shots)
}

// Config configures a Sampler.
type Config struct {
	// Workers is the number of goroutines sharing the shots.
	// Zero means GOMAXPROCS.
	Workers int `json:"workers" yaml:"workers"`

	// Seed makes runs reproducible for a fixed worker count.
	// Zero draws a fresh seed per run.
	Seed uint64 `json:"seed" yaml:"seed"`
}

// Sampler draws joint states from a network.
type Sampler struct {
	workers int
	seed    uint64
}

// New creates a Sampler.
func New(cfg Config) *Sampler {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Sampler{workers: workers, seed: cfg.Seed}
}

// Sample executes n's operation log shots times and returns the aggregated
// counts. Shots are split across workers, each filling a private SampleSet
// with its own random stream; partial sets are merged in worker order. The
// returned set always totals exactly shots.
func (s *Sampler) Sample(ctx context.Context, n *network.Network, shots int) (*SampleSet, error) {
	if shots <= 0 {
		return nil, &InvalidShotsError{Shots: shots}
	}

	seed := s.seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	workers := s.workers
	if workers > shots {
		workers = shots
	}

	ops := n.Ops()
	partials := make([]*SampleSet, workers)

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		chunk := shots / workers
		if w < shots%workers {
			chunk++
		}
		g.Go(func() error {
			rng := rand.New(rand.NewPCG(seed, uint64(w)))
			part := NewSampleSet()
			for i := 0; i < chunk; i++ {
				if i%ctxCheckInterval == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				part.Add(Execute(ops, rng), 1)
			}
			partials[w] = part
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sampling network: %w", err)
	}

	result := NewSampleSet()
	for _, part := range partials {
		result.Merge(part)
	}
	return result, nil
}

// Execute runs one shot of the operation log and returns the final joint
// state. Every factor starts at 0.
func Execute(ops []network.Op, rng *rand.Rand) models.Pattern {
	var p models.Pattern
	for _, op := range ops {
		switch op.Type {
		case network.OpBias:
			p = p.With(op.Factor, rng.Float64() < op.P)
		case network.OpEntangle:
			if p.Bit(op.Source) && rng.Float64() < op.Coupling {
				p = p.Flip(op.Target)
			}
		case network.OpShock:
			p = applyShock(p, op)
		}
	}
	return p
}

// applyShock applies a deterministic shock op to p.
func applyShock(p models.Pattern, op network.Op) models.Pattern {
	switch op.Kind {
	case network.ShockFlip:
		return p.Flip(op.Factor)
	case network.ShockForce:
		return p.With(op.Factor, true)
	default:
		return p
	}
}
