package engine

import (
	"math"
	"math/rand"
	"reflect"
	"testing"
)

func floatsClose(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) > 1e-9 {
			return false
		}
	}
	return true
}

func mustRun(t *testing.T, cfg Config, init WeightSet, signals []float64) RunHistory {
	t.Helper()
	h, err := Run(cfg, init, signals)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return h
}

func mustSimulator(t *testing.T, cfg Config, init WeightSet) *Simulator {
	t.Helper()
	sim, err := NewSimulator(cfg, init)
	if err != nil {
		t.Fatalf("NewSimulator() error = %v", err)
	}
	return sim
}

func TestRun_AllZeroInput(t *testing.T) {
	init := WeightSet{Input: 0.5, State: 0.3, SelfEval: 0.2}
	h := mustRun(t, DefaultConfig(), init, []float64{0, 0, 0, 0, 0})

	if h.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", h.Len())
	}
	for i, d := range h.Decisions {
		if d != 0 {
			t.Errorf("Decisions[%d] = %d, want 0", i, d)
		}
	}
	for i := 1; i < len(h.Stability); i++ {
		if h.Stability[i] != 1.0 {
			t.Errorf("Stability[%d] = %v, want 1.0", i, h.Stability[i])
		}
	}
	wantSelfEval := []float64{0.25, 0.30, 0.35, 0.40, 0.45}
	if !floatsClose(h.SelfEval, wantSelfEval) {
		t.Errorf("SelfEval = %v, want %v", h.SelfEval, wantSelfEval)
	}
}

func TestRun_DecisionFollowsSignal(t *testing.T) {
	init := WeightSet{Input: 1.0}
	h := mustRun(t, DefaultConfig(), init, []float64{1, 0, 1, 0, 1, 0})

	wantDecisions := []int{1, 0, 1, 0, 1, 0}
	if !reflect.DeepEqual(h.Decisions, wantDecisions) {
		t.Errorf("Decisions = %v, want %v", h.Decisions, wantDecisions)
	}
	wantStability := []float64{1, 0, 0, 0, 0, 0}
	if !floatsClose(h.Stability, wantStability) {
		t.Errorf("Stability = %v, want %v", h.Stability, wantStability)
	}
	wantSelfEval := []float64{0.05, 0, 0, 0, 0, 0}
	if !floatsClose(h.SelfEval, wantSelfEval) {
		t.Errorf("SelfEval = %v, want %v", h.SelfEval, wantSelfEval)
	}
}

func TestRun_DecisionThresholdIsInclusive(t *testing.T) {
	init := WeightSet{Input: 1.0}
	h := mustRun(t, DefaultConfig(), init, []float64{0.5, 0.44})

	if h.Decisions[0] != 1 {
		t.Errorf("signal 0.5: decision = %d, want 1", h.Decisions[0])
	}
	// 0.44 + memory mean 1.0 * self_eval 0.05 = 0.49
	if h.Decisions[1] != 0 {
		t.Errorf("signal 0.44: decision = %d, want 0", h.Decisions[1])
	}
}

func TestSimulator_EvictsOldest(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryCapacity = 3
	sim := mustSimulator(t, cfg, WeightSet{Input: 1.0})

	var stability, selfEval float64
	for _, signal := range []float64{1, 1, 1, 0} {
		_, stability, selfEval = sim.Step(signal)
	}

	if got := sim.Memory(); !reflect.DeepEqual(got, []int{1, 1, 0}) {
		t.Errorf("Memory() = %v, want [1 1 0]", got)
	}
	if math.Abs(stability-0.5) > 1e-12 {
		t.Errorf("stability = %v, want 0.5 (computed over the evicted window)", stability)
	}
	if math.Abs(selfEval-0.10) > 1e-9 {
		t.Errorf("selfEval = %v, want 0.10", selfEval)
	}
}

func TestSimulator_MemoryNeverExceedsCapacity(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MemoryCapacity = 7
	sim := mustSimulator(t, cfg, WeightSet{Input: 0.9, State: 0.05, SelfEval: 0.05})
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		sim.Step(float64(rng.Intn(2)))
		if n := len(sim.Memory()); n > cfg.MemoryCapacity {
			t.Fatalf("step %d: memory length %d exceeds capacity %d", i, n, cfg.MemoryCapacity)
		}
	}
}

func TestRun_DoesNotMutateInitialWeights(t *testing.T) {
	init := WeightSet{Input: 0.5, State: 0.3, SelfEval: 0.2}
	want := init
	mustRun(t, DefaultConfig(), init, []float64{1, 1, 1, 1, 1, 1, 1, 1})
	if init != want {
		t.Errorf("initial weights changed: %v, want %v", init, want)
	}
}

func TestRun_Deterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	signals := make([]float64, 2000)
	for i := range signals {
		signals[i] = float64(rng.Intn(2))
	}
	cfg := Config{MemoryCapacity: 200, StabilityThreshold: 0.8, AdaptationStep: 0.05}
	init := WeightSet{Input: 0.7, State: 0.15, SelfEval: 0.15}

	first := mustRun(t, cfg, init, signals)
	second := mustRun(t, cfg, init, signals)
	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same input produced different histories")
	}
}

func TestRun_InvariantsHold(t *testing.T) {
	rng := rand.New(rand.NewSource(99))
	for trial := 0; trial < 20; trial++ {
		n := rng.Intn(300)
		signals := make([]float64, n)
		for i := range signals {
			signals[i] = rng.Float64() * 2
		}
		init := WeightSet{Input: rng.Float64(), State: rng.Float64(), SelfEval: rng.Float64()}
		cfg := Config{MemoryCapacity: 1 + rng.Intn(20), StabilityThreshold: rng.Float64(), AdaptationStep: 0.01 + rng.Float64()/4}

		h := mustRun(t, cfg, init, signals)
		if len(h.Decisions) != n || len(h.Stability) != n || len(h.SelfEval) != n {
			t.Fatalf("trial %d: history lengths (%d, %d, %d), want %d",
				trial, len(h.Decisions), len(h.Stability), len(h.SelfEval), n)
		}
		for i := 0; i < n; i++ {
			if h.Decisions[i] != 0 && h.Decisions[i] != 1 {
				t.Fatalf("trial %d step %d: decision %d is not binary", trial, i, h.Decisions[i])
			}
			if h.Stability[i] < 0 || h.Stability[i] > 1 {
				t.Fatalf("trial %d step %d: stability %v outside [0, 1]", trial, i, h.Stability[i])
			}
			if h.SelfEval[i] < 0 || h.SelfEval[i] > 1 {
				t.Fatalf("trial %d step %d: self_eval %v outside [0, 1]", trial, i, h.SelfEval[i])
			}
		}
	}
}

func TestRun_EmptyInput(t *testing.T) {
	h := mustRun(t, DefaultConfig(), WeightSet{Input: 1}, nil)
	if h.Len() != 0 || len(h.Stability) != 0 || len(h.SelfEval) != 0 {
		t.Errorf("expected empty history, got %+v", h)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero capacity", func(c *Config) { c.MemoryCapacity = 0 }, true},
		{"negative capacity", func(c *Config) { c.MemoryCapacity = -3 }, true},
		{"threshold above one", func(c *Config) { c.StabilityThreshold = 1.2 }, true},
		{"threshold below zero", func(c *Config) { c.StabilityThreshold = -0.1 }, true},
		{"threshold at bounds", func(c *Config) { c.StabilityThreshold = 1 }, false},
		{"zero step", func(c *Config) { c.AdaptationStep = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRun_RejectsInvalidConfig(t *testing.T) {
	for _, capacity := range []int{0, -1, -2, -100} {
		cfg := DefaultConfig()
		cfg.MemoryCapacity = capacity
		if _, err := Run(cfg, WeightSet{Input: 1}, []float64{1, 0, 1}); err == nil {
			t.Errorf("capacity %d: expected error", capacity)
		}
		if sim, err := NewSimulator(cfg, WeightSet{}); err == nil || sim != nil {
			t.Errorf("capacity %d: NewSimulator() = %v, %v", capacity, sim, err)
		}
	}

	cfg := DefaultConfig()
	cfg.AdaptationStep = 0
	if _, err := Run(cfg, WeightSet{Input: 1}, nil); err == nil {
		t.Error("expected error for zero adaptation step")
	}
}
