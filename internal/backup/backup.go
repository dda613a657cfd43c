// Package backup exports stored batches to portable archive files and
// restores them into a store.
package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/recuria/recuria/internal/simulation"
	"github.com/recuria/recuria/internal/store"
)

// FilePrefix starts every archive file name.
const FilePrefix = "recuria-export-"

// Archive is the payload of an export file.
type Archive struct {
	Version   int                 `json:"version"`
	CreatedAt time.Time           `json:"created_at"`
	Batches   []*simulation.Batch `json:"batches"`
}

// StepCount returns the number of steps across every system of every batch.
func (a *Archive) StepCount() int {
	n := 0
	for _, b := range a.Batches {
		for _, sys := range b.Systems {
			n += sys.History.Len()
		}
	}
	return n
}

// DefaultDir returns the default export directory (~/.recuria/exports/).
func DefaultDir() (string, error) {
	global, err := store.GlobalPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(global, "exports"), nil
}

// archiveExt ends every archive file name.
const archiveExt = ".json.gz"

// GeneratePath creates a timestamped archive filename in dir, with
// millisecond resolution.
func GeneratePath(dir string, now time.Time) string {
	return filepath.Join(dir, FilePrefix+now.UTC().Format("20060102-150405.000")+archiveExt)
}

// UniquePath returns path, or path with a numeric suffix before the
// extension when a file by that name already exists.
func UniquePath(path string) string {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path
	}
	base := strings.TrimSuffix(path, archiveExt)
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, archiveExt)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate
		}
	}
}

// Collect loads the batches named by ids from src. An empty ids list
// collects every stored batch, newest first.
func Collect(ctx context.Context, src store.Store, ids []string, now time.Time) (*Archive, error) {
	if len(ids) == 0 {
		infos, err := src.ListBatches(ctx, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list batches: %w", err)
		}
		for _, info := range infos {
			ids = append(ids, info.ID)
		}
	}

	a := &Archive{Version: FormatV2, CreatedAt: now, Batches: make([]*simulation.Batch, 0, len(ids))}
	for _, id := range ids {
		b, err := src.LoadBatch(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load batch %s: %w", id, err)
		}
		a.Batches = append(a.Batches, b)
	}
	return a, nil
}

// Export collects batches from src and writes them as a V2 archive at path.
func Export(ctx context.Context, src store.Store, ids []string, path string, now time.Time) (*Archive, error) {
	a, err := Collect(ctx, src, ids, now)
	if err != nil {
		return nil, err
	}
	if err := WriteV2(path, a, map[string]string{"source": "recuria"}); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	return a, nil
}

// Read reads an archive in either format.
func Read(path string) (*Archive, error) {
	version, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if version == FormatV2 {
		return ReadV2(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading archive: %w", err)
	}
	var a Archive
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parsing archive: %w", err)
	}
	return &a, nil
}

// RestoreResult counts what Restore did.
type RestoreResult struct {
	Restored int `json:"restored"`
	Skipped  int `json:"skipped"`
}

// Restore writes every batch in the archive at path into dst. Batches
// already present are skipped.
func Restore(ctx context.Context, dst store.Store, path string) (*RestoreResult, error) {
	a, err := Read(path)
	if err != nil {
		return nil, err
	}

	result := &RestoreResult{}
	for _, b := range a.Batches {
		_, err := dst.LoadBatch(ctx, b.ID)
		if err == nil {
			result.Skipped++
			continue
		}
		if !errors.Is(err, store.ErrBatchNotFound) {
			return result, fmt.Errorf("failed to check batch %s: %w", b.ID, err)
		}
		if err := dst.Write(ctx, b); err != nil {
			return result, fmt.Errorf("failed to restore batch %s: %w", b.ID, err)
		}
		result.Restored++
	}
	return result, nil
}
