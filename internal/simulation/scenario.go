package simulation

import (
	"fmt"
	"time"

	"github.com/recuria/recuria/internal/config"
	"github.com/recuria/recuria/internal/engine"
	"github.com/recuria/recuria/internal/sequence"
)

// Label names one of the four systems.
type Label string

// System labels in run order.
const (
	SystemA Label = "A"
	SystemB Label = "B"
	SystemC Label = "C"
	SystemD Label = "D"
)

// Labels lists every system in report order.
var Labels = []Label{SystemA, SystemB, SystemC, SystemD}

// inputKinds describes what each system reads.
var inputKinds = map[Label]string{
	SystemA: "primes",
	SystemB: "stability-of-A",
	SystemC: "random",
	SystemD: "pattern",
}

// InputKind returns a short description of the system's input regime.
func (l Label) InputKind() string {
	return inputKinds[l]
}

// Scenario defines a complete four-system experiment.
type Scenario struct {
	MaxSteps          int                        `json:"max_steps"`
	Engine            engine.Config              `json:"engine"`
	BinarizeThreshold float64                    `json:"binarize_threshold"`
	Pattern           []float64                  `json:"pattern"`
	Weights           map[Label]engine.WeightSet `json:"weights"`

	// Seed seeds system C. 0 derives a seed from the batch start time.
	Seed int64 `json:"seed"`
}

// DefaultScenario returns the compact-profile experiment with the default
// initial weights.
func DefaultScenario() Scenario {
	s, err := ScenarioFromConfig(config.Default())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return s
}

// ScenarioFromConfig builds a Scenario from a validated configuration.
func ScenarioFromConfig(cfg *config.RecuriaConfig) (Scenario, error) {
	sets, err := cfg.WeightSets()
	if err != nil {
		return Scenario{}, err
	}
	weights := make(map[Label]engine.WeightSet, len(sets))
	for label, w := range sets {
		weights[Label(label)] = w
	}

	pattern := make([]float64, len(cfg.Simulation.Pattern))
	copy(pattern, cfg.Simulation.Pattern)

	return Scenario{
		MaxSteps:          cfg.Simulation.MaxSteps,
		Engine:            cfg.Engine(),
		BinarizeThreshold: cfg.Simulation.BinarizeThreshold,
		Pattern:           pattern,
		Weights:           weights,
		Seed:              cfg.Simulation.Seed,
	}, nil
}

// Validate checks the scenario before any system runs.
func (s Scenario) Validate() error {
	if s.MaxSteps <= 0 {
		return fmt.Errorf("max_steps must be positive, got %d", s.MaxSteps)
	}
	if err := s.Engine.Validate(); err != nil {
		return err
	}
	if len(s.Pattern) == 0 {
		return fmt.Errorf("pattern: %w", sequence.ErrEmptyPattern)
	}
	for _, l := range Labels {
		if _, ok := s.Weights[l]; !ok {
			return fmt.Errorf("missing initial weights for system %s", l)
		}
	}
	return nil
}

// PrimeLimit is the largest integer the prime-indicator input of A asks about.
func (s Scenario) PrimeLimit() int {
	return sequence.FirstIndicatorValue + s.MaxSteps - 1
}

// SystemResult captures one system's input and run history.
type SystemResult struct {
	Label   Label             `json:"label"`
	Input   string            `json:"input"`
	Weights engine.WeightSet  `json:"weights"`
	Signals []float64         `json:"signals"`
	History engine.RunHistory `json:"history"`
}

// Batch captures the four systems of one experiment.
type Batch struct {
	ID         string         `json:"id"`
	Seed       int64          `json:"seed"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Scenario   Scenario       `json:"scenario"`
	Systems    []SystemResult `json:"systems"`
}

// System returns the result for label.
func (b *Batch) System(label Label) (*SystemResult, bool) {
	for i := range b.Systems {
		if b.Systems[i].Label == label {
			return &b.Systems[i], true
		}
	}
	return nil, false
}
