// Package report renders completed batches as text.
package report

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/recuria/recuria/internal/simulation"
)

// DefaultTableFile is the file the table report is appended to.
const DefaultTableFile = "system_output.txt"

const ruleWidth = 36

// TableWriter writes one fixed-width table per system. It implements
// simulation.Sink.
type TableWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewTableWriter returns a TableWriter that writes to w.
func NewTableWriter(w io.Writer) *TableWriter {
	return &TableWriter{w: w}
}

// Write appends a table for every system of b, in label order.
func (t *TableWriter) Write(ctx context.Context, b *simulation.Batch) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, label := range simulation.Labels {
		if err := ctx.Err(); err != nil {
			return err
		}
		sys, ok := b.System(label)
		if !ok {
			continue
		}
		if err := WriteTable(t.w, sys); err != nil {
			return fmt.Errorf("writing table for system %s: %w", label, err)
		}
	}
	return nil
}

// WriteTable writes a single system's history.
func WriteTable(w io.Writer, sys *simulation.SystemResult) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "System %s\n", sys.Label)
	fmt.Fprintf(&sb, "%6s | %5s | %9s | %9s\n", "Step", "State", "Stability", "Self_Eval")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteByte('\n')

	h := sys.History
	for i := 0; i < h.Len(); i++ {
		fmt.Fprintf(&sb, "%6d | %5d | %9.4f | %9.4f\n", i, h.Decisions[i], h.Stability[i], h.SelfEval[i])
	}
	sb.WriteByte('\n')

	_, err := io.WriteString(w, sb.String())
	return err
}

// TableFile is a TableWriter backed by a file opened for appending.
type TableFile struct {
	*TableWriter
	f *os.File
}

// OpenTableFile opens path for appending, creating it if needed.
func OpenTableFile(path string) (*TableFile, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening table file: %w", err)
	}
	return &TableFile{TableWriter: NewTableWriter(f), f: f}, nil
}

// Path returns the file's path.
func (t *TableFile) Path() string {
	return t.f.Name()
}

// Close closes the underlying file.
func (t *TableFile) Close() error {
	return t.f.Close()
}
