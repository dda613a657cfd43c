package report

import (
	"fmt"
	"io"

	"github.com/recuria/recuria/internal/simulation"
)

// SystemSummary condenses one system's run.
type SystemSummary struct {
	Label          simulation.Label `json:"label"`
	Input          string           `json:"input"`
	Steps          int              `json:"steps"`
	Ones           int              `json:"ones"`
	MeanStability  float64          `json:"mean_stability"`
	FinalStability float64          `json:"final_stability"`
	FinalSelfEval  float64          `json:"final_self_eval"`
}

// Summary condenses a batch.
type Summary struct {
	BatchID string          `json:"batch_id"`
	Seed    int64           `json:"seed"`
	Systems []SystemSummary `json:"systems"`
}

// Summarize computes per-system statistics for b. Systems with no steps
// report their initial self-evaluation weight as the final value.
func Summarize(b *simulation.Batch) Summary {
	s := Summary{BatchID: b.ID, Seed: b.Seed}
	for _, sys := range b.Systems {
		h := sys.History
		ss := SystemSummary{
			Label:         sys.Label,
			Input:         sys.Input,
			Steps:         h.Len(),
			FinalSelfEval: sys.Weights.SelfEval,
		}
		for _, d := range h.Decisions {
			ss.Ones += d
		}
		if n := len(h.Stability); n > 0 {
			var sum float64
			for _, v := range h.Stability {
				sum += v
			}
			ss.MeanStability = sum / float64(n)
			ss.FinalStability = h.Stability[n-1]
		}
		if n := len(h.SelfEval); n > 0 {
			ss.FinalSelfEval = h.SelfEval[n-1]
		}
		s.Systems = append(s.Systems, ss)
	}
	return s
}

// WriteSummary prints a short human-readable summary.
func WriteSummary(w io.Writer, s Summary) error {
	if _, err := fmt.Fprintf(w, "Batch %s (seed %d)\n", s.BatchID, s.Seed); err != nil {
		return err
	}
	for _, ss := range s.Systems {
		if _, err := fmt.Fprintf(w, "  %s  %-15s steps=%d ones=%d mean_stability=%.4f final_self_eval=%.4f\n",
			ss.Label, ss.Input, ss.Steps, ss.Ones, ss.MeanStability, ss.FinalSelfEval); err != nil {
			return err
		}
	}
	return nil
}
