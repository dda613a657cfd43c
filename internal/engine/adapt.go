package engine

const (
	// DefaultStabilityThreshold separates the increase and decrease branches
	// of Adapt. Scores strictly above it raise self_eval.
	DefaultStabilityThreshold = 0.8

	// DefaultAdaptationStep is the amount self_eval moves per step.
	DefaultAdaptationStep = 0.05

	minSelfEval = 0.0
	maxSelfEval = 1.0
)

// Adapt moves w.SelfEval one step toward 1 when stability exceeds threshold
// and one step toward 0 otherwise. The result is clamped to [0, 1].
// Input and State are never touched.
func Adapt(w *WeightSet, stability, threshold, step float64) {
	if stability > threshold {
		w.SelfEval = min(maxSelfEval, w.SelfEval+step)
	} else {
		w.SelfEval = max(minSelfEval, w.SelfEval-step)
	}
}
