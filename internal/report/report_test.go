package report

import (
	"bytes"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recuria/recuria/internal/engine"
	"github.com/recuria/recuria/internal/simulation"
)

func sampleBatch() *simulation.Batch {
	return &simulation.Batch{
		ID:   "20250504-103000-abcd1234",
		Seed: 7,
		Systems: []simulation.SystemResult{
			{
				Label:   simulation.SystemA,
				Input:   "primes",
				Weights: engine.WeightSet{Input: 0.5, State: 0.3, SelfEval: 0.2},
				Signals: []float64{1, 1},
				History: engine.RunHistory{
					Decisions: []int{1, 1},
					Stability: []float64{1, 1},
					SelfEval:  []float64{0.25, 0.3},
				},
			},
			{
				Label:   simulation.SystemB,
				Input:   "stability-of-A",
				Weights: engine.WeightSet{Input: 0.6, State: 0.2, SelfEval: 0.2},
			},
		},
	}
}

func TestWriteTable_Format(t *testing.T) {
	b := sampleBatch()
	var buf bytes.Buffer
	if err := WriteTable(&buf, &b.Systems[0]); err != nil {
		t.Fatalf("WriteTable() error = %v", err)
	}

	want := "System A\n" +
		"  Step | State | Stability | Self_Eval\n" +
		"------------------------------------\n" +
		"     0 |     1 |    1.0000 |    0.2500\n" +
		"     1 |     1 |    1.0000 |    0.3000\n" +
		"\n"
	if buf.String() != want {
		t.Errorf("WriteTable() =\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestTableWriter_WritesSystemsInLabelOrder(t *testing.T) {
	b := sampleBatch()
	b.Systems[0], b.Systems[1] = b.Systems[1], b.Systems[0]

	var buf bytes.Buffer
	if err := NewTableWriter(&buf).Write(context.Background(), b); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	out := buf.String()
	ia, ib := strings.Index(out, "System A"), strings.Index(out, "System B")
	if ia < 0 || ib < 0 || ia > ib {
		t.Errorf("expected System A before System B, got:\n%s", out)
	}
}

func TestOpenTableFile_Appends(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultTableFile)
	b := sampleBatch()

	for i := 0; i < 2; i++ {
		tf, err := OpenTableFile(path)
		if err != nil {
			t.Fatalf("OpenTableFile() error = %v", err)
		}
		if err := tf.Write(context.Background(), b); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if err := tf.Close(); err != nil {
			t.Fatalf("Close() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(string(data), "System A\n"); got != 2 {
		t.Errorf("found %d System A tables, want 2", got)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleBatch())

	if s.BatchID != "20250504-103000-abcd1234" || s.Seed != 7 {
		t.Errorf("unexpected header: %+v", s)
	}
	if len(s.Systems) != 2 {
		t.Fatalf("got %d systems, want 2", len(s.Systems))
	}

	a := s.Systems[0]
	if a.Steps != 2 || a.Ones != 2 {
		t.Errorf("A: steps=%d ones=%d, want 2 and 2", a.Steps, a.Ones)
	}
	if math.Abs(a.MeanStability-1) > 1e-9 || math.Abs(a.FinalSelfEval-0.3) > 1e-9 {
		t.Errorf("A: mean_stability=%v final_self_eval=%v", a.MeanStability, a.FinalSelfEval)
	}

	// An empty run keeps the initial weight.
	b := s.Systems[1]
	if b.Steps != 0 || b.FinalSelfEval != 0.2 {
		t.Errorf("B: steps=%d final_self_eval=%v, want 0 and 0.2", b.Steps, b.FinalSelfEval)
	}
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Summarize(sampleBatch())); err != nil {
		t.Fatalf("WriteSummary() error = %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Batch 20250504-103000-abcd1234 (seed 7)", "A  primes", "final_self_eval=0.3000"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
