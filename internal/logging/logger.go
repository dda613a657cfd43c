// Package logging provides leveled logging and decision tracing for recuria.
// It offers two complementary outputs:
//   - A leveled slog.Logger for stderr (operational output)
//   - A DecisionLogger writing one JSONL record per simulated step
//     (decisions.jsonl), enabled at debug and trace levels
package logging

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LevelTrace is a custom slog level below Debug. At this level every
// generated input sequence is logged in full.
const LevelTrace = slog.LevelDebug - 4

// DecisionsFile is the name of the per-step trace written by DecisionLogger.
const DecisionsFile = "decisions.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// StepRecord is one line of the decision trace.
type StepRecord struct {
	Batch     string  `json:"batch"`
	System    string  `json:"system"`
	Step      int     `json:"step"`
	Signal    float64 `json:"signal"`
	Decision  int     `json:"decision"`
	Stability float64 `json:"stability"`
	SelfEval  float64 `json:"self_eval"`
	Time      string  `json:"time"`
}

// DecisionLogger appends StepRecords to a JSONL file.
// It is safe for concurrent use. A nil DecisionLogger is safe to use;
// all methods are no-ops on nil receiver.
type DecisionLogger struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
}

// NewDecisionLogger creates a decision logger writing to dir/decisions.jsonl.
// At "info" level (the default) it returns nil and no file is created.
// At "debug" or "trace" level the file is opened for append.
// Returns nil if the file cannot be opened. All methods are nil-safe.
func NewDecisionLogger(dir string, level string) *DecisionLogger {
	if ParseLevel(level) == slog.LevelInfo {
		return nil
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}

	path := filepath.Join(dir, DecisionsFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	return &DecisionLogger{file: f, w: bufio.NewWriter(f)}
}

// LogRun writes one record per step of a completed run. signals and the
// three trace slices must have equal length.
func (dl *DecisionLogger) LogRun(batch, system string, signals []float64, decisions []int, stability, selfEval []float64) error {
	if dl == nil || dl.file == nil {
		return nil
	}
	if len(signals) != len(decisions) || len(decisions) != len(stability) || len(stability) != len(selfEval) {
		return fmt.Errorf("system %s: trace lengths differ (%d signals, %d decisions, %d stability, %d self_eval)",
			system, len(signals), len(decisions), len(stability), len(selfEval))
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	dl.mu.Lock()
	defer dl.mu.Unlock()

	enc := json.NewEncoder(dl.w)
	for i := range decisions {
		rec := StepRecord{
			Batch:     batch,
			System:    system,
			Step:      i,
			Signal:    signals[i],
			Decision:  decisions[i],
			Stability: stability[i],
			SelfEval:  selfEval[i],
			Time:      now,
		}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("encoding step %d of system %s: %w", i, system, err)
		}
	}
	return dl.w.Flush()
}

// Close flushes and closes the underlying file. Safe to call on nil receiver.
func (dl *DecisionLogger) Close() {
	if dl == nil || dl.file == nil {
		return
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	_ = dl.w.Flush()
	dl.file.Close()
	dl.file = nil
}
