// Package engine implements the recursive feedback simulator: a bounded
// memory of binary decisions, a continuity score over that memory, and a
// single adaptive weight tuned by a hysteresis rule.
package engine

import "fmt"

// WeightSet holds the three linear-combination coefficients of a simulator.
// Coefficients are not normalized and need not sum to 1.
type WeightSet struct {
	Input    float64 `json:"input" yaml:"input"`
	State    float64 `json:"state" yaml:"state"`
	SelfEval float64 `json:"self_eval" yaml:"self_eval"`
}

// String implements fmt.Stringer.
func (w WeightSet) String() string {
	return fmt.Sprintf("{input:%g state:%g self_eval:%g}", w.Input, w.State, w.SelfEval)
}

// WeightedSum combines one step's inputs with the coefficients.
func (w WeightSet) WeightedSum(signal float64, state int, selfEval float64) float64 {
	return signal*w.Input + float64(state)*w.State + selfEval*w.SelfEval
}
