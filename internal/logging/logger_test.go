package logging

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  slog.Level
	}{
		{"info", "info", slog.LevelInfo},
		{"debug", "debug", slog.LevelDebug},
		{"trace", "trace", LevelTrace},
		{"uppercase DEBUG", "DEBUG", slog.LevelDebug},
		{"mixed case Trace", "Trace", LevelTrace},
		{"unknown defaults to info", "verbose", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestNewLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		name       string
		level      string
		logAtDebug bool
		logAtTrace bool
	}{
		{"info filters debug", "info", false, false},
		{"debug passes debug", "debug", true, false},
		{"trace passes everything", "trace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, &buf)

			logger.Debug("debug message")
			if got := strings.Contains(buf.String(), "debug message"); got != tt.logAtDebug {
				t.Errorf("debug message visible = %v, want %v", got, tt.logAtDebug)
			}

			buf.Reset()
			logger.Log(t.Context(), LevelTrace, "trace message")
			if got := strings.Contains(buf.String(), "trace message"); got != tt.logAtTrace {
				t.Errorf("trace message visible = %v, want %v", got, tt.logAtTrace)
			}
			if tt.logAtTrace && !strings.Contains(buf.String(), "level=TRACE") {
				t.Errorf("expected TRACE level label, got %q", buf.String())
			}
		})
	}
}

func TestNewDecisionLogger_InfoLevel(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "info")
	if dl != nil {
		t.Fatal("expected nil DecisionLogger at info level")
	}

	// Nil logger is still safe to use.
	if err := dl.LogRun("b", "A", []float64{1}, []int{1}, []float64{1}, []float64{0.25}); err != nil {
		t.Errorf("LogRun on nil logger returned %v", err)
	}
	dl.Close()

	if _, err := os.Stat(filepath.Join(dir, DecisionsFile)); err == nil {
		t.Error("decisions.jsonl should not exist at info level")
	}
}

func TestDecisionLogger_LogRun(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("expected DecisionLogger at debug level")
	}

	err := dl.LogRun("batch-1", "D",
		[]float64{1, 0, 1},
		[]int{1, 0, 1},
		[]float64{1, 0, 0},
		[]float64{0.2, 0.15, 0.1})
	if err != nil {
		t.Fatalf("LogRun() error = %v", err)
	}
	dl.Close()

	f, err := os.Open(filepath.Join(dir, DecisionsFile))
	if err != nil {
		t.Fatalf("failed to open decisions.jsonl: %v", err)
	}
	defer f.Close()

	var records []StepRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec StepRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("failed to parse line %q: %v", scanner.Text(), err)
		}
		records = append(records, rec)
	}

	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	last := records[2]
	if last.Batch != "batch-1" || last.System != "D" || last.Step != 2 || last.Decision != 1 || last.SelfEval != 0.1 {
		t.Errorf("unexpected last record: %+v", last)
	}
	if last.Time == "" {
		t.Error("expected time field")
	}
}

func TestDecisionLogger_LengthMismatch(t *testing.T) {
	dl := NewDecisionLogger(t.TempDir(), "trace")
	defer dl.Close()

	err := dl.LogRun("b", "A", []float64{1, 1}, []int{1}, []float64{1}, []float64{1})
	if err == nil {
		t.Error("expected error for mismatched trace lengths")
	}
}

func TestDecisionLogger_ConcurrentRuns(t *testing.T) {
	dir := t.TempDir()
	dl := NewDecisionLogger(dir, "debug")

	var wg sync.WaitGroup
	for _, system := range []string{"A", "B", "C", "D"} {
		wg.Add(1)
		go func(system string) {
			defer wg.Done()
			signals := make([]float64, 50)
			decisions := make([]int, 50)
			traces := make([]float64, 50)
			if err := dl.LogRun("b", system, signals, decisions, traces, traces); err != nil {
				t.Errorf("LogRun(%s) error = %v", system, err)
			}
		}(system)
	}
	wg.Wait()
	dl.Close()

	data, err := os.ReadFile(filepath.Join(dir, DecisionsFile))
	if err != nil {
		t.Fatalf("failed to read decisions.jsonl: %v", err)
	}
	if lines := strings.Count(string(data), "\n"); lines != 200 {
		t.Errorf("got %d lines, want 200", lines)
	}
}
