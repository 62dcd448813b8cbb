package sampler

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/agrioracle/agri-oracle/internal/models"
	"github.com/agrioracle/agri-oracle/internal/network"
)

func build(initial models.InitialCondition) *network.Network {
	return network.NewBuilder(network.DefaultParams()).Build(initial)
}

func TestSample_TotalEqualsShots(t *testing.T) {
	n := build(models.InitialCondition{Monsoon: models.MonsoonDisrupted})

	for _, workers := range []int{1, 3, 8} {
		for _, shots := range []int{1, 2, 7, 500, 1024, 3001} {
			s := New(Config{Workers: workers, Seed: 42})
			set, err := s.Sample(context.Background(), n, shots)
			if err != nil {
				t.Fatalf("Sample(workers=%d, shots=%d) failed: %v", workers, shots, err)
			}
			if set.Total() != shots {
				t.Errorf("workers=%d shots=%d: Total() = %d", workers, shots, set.Total())
			}

			sum := 0
			for _, count := range set.Counts() {
				sum += count
			}
			if sum != shots {
				t.Errorf("workers=%d shots=%d: counts sum to %d", workers, shots, sum)
			}
		}
	}
}

func TestSample_InvalidShots(t *testing.T) {
	s := New(Config{Seed: 1})
	for _, shots := range []int{0, -1, -1024} {
		set, err := s.Sample(context.Background(), build(models.InitialCondition{}), shots)
		if set != nil {
			t.Errorf("shots=%d: expected nil SampleSet", shots)
		}
		var invalid *InvalidShotsError
		if !errors.As(err, &invalid) {
			t.Fatalf("shots=%d: expected *InvalidShotsError, got %v", shots, err)
		}
		if invalid.Shots != shots {
			t.Errorf("Shots = %d, want %d", invalid.Shots, shots)
		}
	}
}

func TestSample_SeedIsReproducible(t *testing.T) {
	n := build(models.InitialCondition{Subsidies: models.SubsidyHigh})
	cfg := Config{Workers: 4, Seed: 7}

	a, err := New(cfg).Sample(context.Background(), n, 2048)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	b, err := New(cfg).Sample(context.Background(), n, 2048)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	ap, bp := a.Patterns(), b.Patterns()
	if len(ap) != len(bp) {
		t.Fatalf("pattern count differs: %d vs %d", len(ap), len(bp))
	}
	for i := range ap {
		if ap[i] != bp[i] || a.Count(ap[i]) != b.Count(bp[i]) {
			t.Errorf("pattern %d differs: %v=%d vs %v=%d", i, ap[i], a.Count(ap[i]), bp[i], b.Count(bp[i]))
		}
	}
}

func TestSample_MatchesExact(t *testing.T) {
	n := build(models.InitialCondition{Monsoon: models.MonsoonDisrupted, Subsidies: models.SubsidyHigh})
	const shots = 40000

	set, err := New(Config{Workers: 4, Seed: 99}).Sample(context.Background(), n, shots)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	exact := Exact(n)
	for i := 0; i < models.NumPatterns; i++ {
		p := models.Pattern(i)
		got := float64(set.Count(p)) / shots
		if math.Abs(got-exact.Probability(p)) > 0.02 {
			t.Errorf("pattern %s: sampled %.4f, exact %.4f", p, got, exact.Probability(p))
		}
	}
}

func TestExact_SumsToOne(t *testing.T) {
	for _, initial := range []models.InitialCondition{
		{},
		{Monsoon: models.MonsoonDisrupted},
		{Subsidies: models.SubsidyHigh},
		{Monsoon: models.MonsoonDisrupted, Subsidies: models.SubsidyHigh},
	} {
		d := Exact(build(initial))
		if math.Abs(d.Sum()-1) > 1e-12 {
			t.Errorf("%v: distribution sums to %f", initial, d.Sum())
		}
	}
}

func TestExact_DeterministicCircuit(t *testing.T) {
	// With degenerate priors and full coupling the network reduces to the
	// classical controlled-flip circuit: a disrupted monsoon makes yield
	// poor, which makes demand volatile.
	params := network.Params{DisruptedPrior: 1, NormalPrior: 0, HighPrior: 1, StandardPrior: 0, Coupling: 1}
	n := network.NewBuilder(params).Build(models.InitialCondition{Monsoon: models.MonsoonDisrupted})

	want, _ := models.ParsePattern("1011")
	if got := Exact(n).Probability(want); got != 1 {
		t.Errorf("P(%s) = %f, want 1", want, got)
	}

	// High subsidies on top flip yield back after demand has already read it.
	n = network.NewBuilder(params).Build(models.InitialCondition{Monsoon: models.MonsoonDisrupted, Subsidies: models.SubsidyHigh})
	want, _ = models.ParsePattern("1101")
	if got := Exact(n).Probability(want); got != 1 {
		t.Errorf("P(%s) = %f, want 1", want, got)
	}
}

func TestExact_ShockComposition(t *testing.T) {
	base := build(models.InitialCondition{})
	baseDist := Exact(base)

	twoFlips := base.Clone().Shock("a", models.Demand, network.ShockFlip).Shock("b", models.Demand, network.ShockFlip)
	if Exact(twoFlips) != baseDist {
		t.Error("two flips on the same factor should cancel")
	}

	oneForce := base.Clone().Shock("a", models.Monsoon, network.ShockForce)
	twoForces := oneForce.Clone().Shock("a", models.Monsoon, network.ShockForce)
	if Exact(oneForce) != Exact(twoForces) {
		t.Error("repeated forces should reinforce, not cancel")
	}
	if got := Exact(oneForce).Marginal(models.Monsoon); math.Abs(got-1) > 1e-12 {
		t.Errorf("forced monsoon marginal = %f, want 1", got)
	}

	none := base.Clone().Shock("baseline", models.Monsoon, network.ShockNone)
	if Exact(none) != baseDist {
		t.Error("none-kind shock should leave the distribution unchanged")
	}
}

func TestSample_BaselineIndistinguishable(t *testing.T) {
	base := build(models.InitialCondition{})
	withBaseline := base.Clone().Shock("No Major Event (Baseline Forecast)", models.Monsoon, network.ShockNone)
	const shots = 20000

	a, err := New(Config{Workers: 2, Seed: 3}).Sample(context.Background(), base, shots)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	b, err := New(Config{Workers: 2, Seed: 4}).Sample(context.Background(), withBaseline, shots)
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}

	for i := 0; i < models.NumPatterns; i++ {
		p := models.Pattern(i)
		pa := float64(a.Count(p)) / shots
		pb := float64(b.Count(p)) / shots
		if math.Abs(pa-pb) > 0.025 {
			t.Errorf("pattern %s: %.4f without shock vs %.4f with baseline", p, pa, pb)
		}
	}
}

func TestSample_MonotonicBias(t *testing.T) {
	const shots = 2000
	marginal := func(set *SampleSet) float64 {
		n := 0
		for _, p := range set.Patterns() {
			if p.Bit(models.Monsoon) {
				n += set.Count(p)
			}
		}
		return float64(n) / float64(set.Total())
	}

	for seed := uint64(1); seed <= 5; seed++ {
		s := New(Config{Workers: 2, Seed: seed})
		disrupted, err := s.Sample(context.Background(), build(models.InitialCondition{Monsoon: models.MonsoonDisrupted}), shots)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		normal, err := s.Sample(context.Background(), build(models.InitialCondition{Monsoon: models.MonsoonNormal}), shots)
		if err != nil {
			t.Fatalf("Sample failed: %v", err)
		}
		if marginal(disrupted) <= marginal(normal) {
			t.Errorf("seed %d: disrupted mass %.3f should exceed normal mass %.3f",
				seed, marginal(disrupted), marginal(normal))
		}
	}
}

func TestSample_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	set, err := New(Config{Workers: 2, Seed: 1}).Sample(ctx, build(models.InitialCondition{}), 5000)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if set != nil {
		t.Error("no SampleSet should be returned on cancellation")
	}
}

func TestExecute_ShockAfterEntanglement(t *testing.T) {
	// A shock on Monsoon lands after the entangle ops, so it does not reach
	// Yield within the same shot.
	n := network.New().Entangle(models.Monsoon, models.Yield, 1).Shock("drought", models.Monsoon, network.ShockForce)
	rng := rand.New(rand.NewPCG(1, 2))

	p := Execute(n.Ops(), rng)
	if !p.Bit(models.Monsoon) {
		t.Error("monsoon should be forced")
	}
	if p.Bit(models.Yield) {
		t.Error("yield should not see a shock applied after entanglement")
	}
}

func TestSampleSet_FirstSeenOrder(t *testing.T) {
	s := NewSampleSet()
	s.Add(5, 2)
	s.Add(1, 1)
	s.Add(5, 3)
	s.Add(9, 0)

	other := NewSampleSet()
	other.Add(3, 4)
	other.Add(1, 1)
	s.Merge(other)

	want := []models.Pattern{5, 1, 3}
	got := s.Patterns()
	if len(got) != len(want) {
		t.Fatalf("Patterns() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Patterns()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if s.Total() != 11 {
		t.Errorf("Total() = %d, want 11", s.Total())
	}
	if s.Count(5) != 5 || s.Count(1) != 2 {
		t.Errorf("unexpected counts: %v", s.Counts())
	}
}
