package simulation

import (
	"testing"
)

// AssertHistoryLengths asserts that every system's history has one entry
// per input signal and per scenario step.
func AssertHistoryLengths(t *testing.T, batch *Batch) {
	t.Helper()
	for _, sys := range batch.Systems {
		h := sys.History
		n := len(sys.Signals)
		if n != batch.Scenario.MaxSteps {
			t.Errorf("AssertHistoryLengths: system %s: %d signals, want %d", sys.Label, n, batch.Scenario.MaxSteps)
		}
		if len(h.Decisions) != n || len(h.Stability) != n || len(h.SelfEval) != n {
			t.Errorf("AssertHistoryLengths: system %s: lengths (%d, %d, %d), want %d",
				sys.Label, len(h.Decisions), len(h.Stability), len(h.SelfEval), n)
		}
	}
}

// AssertSelfEvalBounded asserts that self_eval never leaves [0, 1].
func AssertSelfEvalBounded(t *testing.T, batch *Batch) {
	t.Helper()
	for _, sys := range batch.Systems {
		for i, w := range sys.History.SelfEval {
			if w < 0 || w > 1 {
				t.Errorf("AssertSelfEvalBounded: system %s step %d: self_eval %.6f outside [0, 1]", sys.Label, i, w)
				break
			}
		}
	}
}

// AssertStabilitySettles asserts that a system's stability stays at or
// above min from step afterStep onward.
func AssertStabilitySettles(t *testing.T, batch *Batch, label Label, min float64, afterStep int) {
	t.Helper()
	sys, ok := batch.System(label)
	if !ok {
		t.Errorf("AssertStabilitySettles: system %s not found", label)
		return
	}
	for i := afterStep; i < len(sys.History.Stability); i++ {
		if s := sys.History.Stability[i]; s < min {
			t.Errorf("AssertStabilitySettles: system %s step %d: stability %.4f < %.4f", label, i, s, min)
			return
		}
	}
}

// AssertDependentInput asserts that B's input is A's stability trace
// binarized at the scenario threshold.
func AssertDependentInput(t *testing.T, batch *Batch) {
	t.Helper()
	a, okA := batch.System(SystemA)
	b, okB := batch.System(SystemB)
	if !okA || !okB {
		t.Errorf("AssertDependentInput: systems A and B are required")
		return
	}
	if len(b.Signals) != len(a.History.Stability) {
		t.Errorf("AssertDependentInput: B has %d signals, A has %d stability scores", len(b.Signals), len(a.History.Stability))
		return
	}
	for i, s := range a.History.Stability {
		want := 0.0
		if s >= batch.Scenario.BinarizeThreshold {
			want = 1
		}
		if b.Signals[i] != want {
			t.Errorf("AssertDependentInput: step %d: B signal %v, want %v (A stability %.4f)", i, b.Signals[i], want, s)
			return
		}
	}
}
