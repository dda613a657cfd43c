package engine

import "fmt"

// DecisionThreshold is the weighted sum at or above which a step decides 1.
const DecisionThreshold = 0.5

// DefaultMemoryCapacity is the memory window size of the compact profile.
const DefaultMemoryCapacity = 10

// Config holds the per-simulator constants.
type Config struct {
	// MemoryCapacity bounds the memory window. Oldest decisions are evicted
	// first once it is exceeded. Default: 10.
	MemoryCapacity int `json:"memory_capacity" yaml:"memory_capacity"`

	// StabilityThreshold is the hysteresis threshold used by Adapt. Default: 0.8.
	StabilityThreshold float64 `json:"stability_threshold" yaml:"stability_threshold"`

	// AdaptationStep is the self_eval step size used by Adapt. Default: 0.05.
	AdaptationStep float64 `json:"adaptation_step" yaml:"adaptation_step"`
}

// DefaultConfig returns the default simulator configuration.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity:     DefaultMemoryCapacity,
		StabilityThreshold: DefaultStabilityThreshold,
		AdaptationStep:     DefaultAdaptationStep,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.MemoryCapacity <= 0 {
		return fmt.Errorf("memory_capacity must be positive, got %d", c.MemoryCapacity)
	}
	if c.StabilityThreshold < 0 || c.StabilityThreshold > 1 {
		return fmt.Errorf("stability_threshold must be between 0 and 1, got %f", c.StabilityThreshold)
	}
	if c.AdaptationStep <= 0 {
		return fmt.Errorf("adaptation_step must be positive, got %f", c.AdaptationStep)
	}
	return nil
}

// RunHistory is the per-step output of one simulator run. The three slices
// always have the same length as the input sequence.
type RunHistory struct {
	Decisions []int     `json:"decisions"`
	Stability []float64 `json:"stability"`
	SelfEval  []float64 `json:"self_eval"`
}

// Len returns the number of recorded steps.
func (h RunHistory) Len() int {
	return len(h.Decisions)
}

// Simulator is the feedback state machine. A Simulator is not safe for
// concurrent use; each run owns its own instance.
type Simulator struct {
	cfg     Config
	state   int
	memory  []int
	weights WeightSet
}

// NewSimulator creates a simulator seeded with a copy of init. It returns
// an error when cfg does not pass Validate.
func NewSimulator(cfg Config, init WeightSet) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulator config: %w", err)
	}
	return &Simulator{
		cfg:     cfg,
		memory:  make([]int, 0, cfg.MemoryCapacity+1),
		weights: init,
	}, nil
}

// Weights returns the current coefficients.
func (s *Simulator) Weights() WeightSet {
	return s.weights
}

// Memory returns a copy of the current memory window, oldest first.
func (s *Simulator) Memory() []int {
	out := make([]int, len(s.memory))
	copy(out, s.memory)
	return out
}

// Step feeds one signal through the loop and returns the decision, the
// stability of the updated memory, and the adapted self_eval coefficient.
func (s *Simulator) Step(signal float64) (decision int, stability, selfEval float64) {
	sum := s.weights.WeightedSum(signal, s.state, Mean(s.memory))
	if sum >= DecisionThreshold {
		decision = 1
	}
	s.state = decision

	s.memory = append(s.memory, decision)
	if len(s.memory) > s.cfg.MemoryCapacity {
		copy(s.memory, s.memory[1:])
		s.memory = s.memory[:len(s.memory)-1]
	}

	stability = Stability(s.memory)
	Adapt(&s.weights, stability, s.cfg.StabilityThreshold, s.cfg.AdaptationStep)

	return decision, stability, s.weights.SelfEval
}

// Run simulates a fresh system over signals and returns its history.
// init is copied; the caller's value is never modified.
func Run(cfg Config, init WeightSet, signals []float64) (RunHistory, error) {
	sim, err := NewSimulator(cfg, init)
	if err != nil {
		return RunHistory{}, err
	}
	h := RunHistory{
		Decisions: make([]int, 0, len(signals)),
		Stability: make([]float64, 0, len(signals)),
		SelfEval:  make([]float64, 0, len(signals)),
	}
	for _, signal := range signals {
		d, st, w := sim.Step(signal)
		h.Decisions = append(h.Decisions, d)
		h.Stability = append(h.Stability, st)
		h.SelfEval = append(h.SelfEval, w)
	}
	return h, nil
}
