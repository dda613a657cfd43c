package backup

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/recuria/recuria/internal/clock"
	"github.com/recuria/recuria/internal/primes"
	"github.com/recuria/recuria/internal/simulation"
	"github.com/recuria/recuria/internal/store"
)

var t0 = time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)

func seededStore(t *testing.T, n int) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for i := 0; i < n; i++ {
		sc := simulation.DefaultScenario()
		sc.MaxSteps = 40
		sc.Seed = int64(i + 1)
		r, err := simulation.New(sc, primes.Generate(sc.PrimeLimit()),
			simulation.WithClock(clock.Fixed(t0.Add(time.Duration(i)*time.Minute))),
			simulation.WithSinks(s))
		if err != nil {
			t.Fatalf("simulation.New() error = %v", err)
		}
		if _, err := r.Run(context.Background()); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	}
	return s
}

func TestExportRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t, 3)
	path := GeneratePath(t.TempDir(), t0)

	a, err := Export(ctx, src, nil, path, t0)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(a.Batches) != 3 {
		t.Fatalf("exported %d batches, want 3", len(a.Batches))
	}
	if a.StepCount() != 3*4*40 {
		t.Errorf("StepCount() = %d, want %d", a.StepCount(), 3*4*40)
	}

	dst := store.NewMemoryStore()
	res, err := Restore(ctx, dst, path)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if res.Restored != 3 || res.Skipped != 0 {
		t.Errorf("Restore() = %+v, want 3 restored", res)
	}

	for _, b := range a.Batches {
		got, err := dst.LoadBatch(ctx, b.ID)
		if err != nil {
			t.Fatalf("LoadBatch(%s) error = %v", b.ID, err)
		}
		if !reflect.DeepEqual(got.Systems, b.Systems) {
			t.Errorf("batch %s systems differ after restore", b.ID)
		}
	}

	// Restoring again skips everything.
	res, err = Restore(ctx, dst, path)
	if err != nil {
		t.Fatalf("second Restore() error = %v", err)
	}
	if res.Restored != 0 || res.Skipped != 3 {
		t.Errorf("second Restore() = %+v, want 3 skipped", res)
	}
}

func TestExport_SelectedBatches(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t, 2)
	infos, _ := src.ListBatches(ctx, 0)

	a, err := Export(ctx, src, []string{infos[1].ID}, filepath.Join(t.TempDir(), "one.json.gz"), t0)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if len(a.Batches) != 1 || a.Batches[0].ID != infos[1].ID {
		t.Errorf("exported %+v", a.Batches)
	}

	if _, err := Export(ctx, src, []string{"missing"}, filepath.Join(t.TempDir(), "x"), t0); err == nil {
		t.Error("expected error for unknown batch")
	}
}

func TestRead_V1(t *testing.T) {
	ctx := context.Background()
	a, err := Collect(ctx, seededStore(t, 1), nil, t0)
	if err != nil {
		t.Fatal(err)
	}
	a.Version = FormatV1

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "v1.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	if v, err := DetectFormat(path); err != nil || v != FormatV1 {
		t.Errorf("DetectFormat() = %d, %v; want V1", v, err)
	}
	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(got.Batches) != 1 || got.Batches[0].ID != a.Batches[0].ID {
		t.Errorf("Read() batches = %d", len(got.Batches))
	}
}

func TestGeneratePath(t *testing.T) {
	got := GeneratePath("/tmp/x", t0)
	if filepath.Base(got) != "recuria-export-20250504-103000.000.json.gz" {
		t.Errorf("GeneratePath() = %q", got)
	}
	if later := GeneratePath("/tmp/x", t0.Add(250*time.Millisecond)); later == got {
		t.Errorf("exports 250ms apart share the name %q", got)
	}
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	path := GeneratePath(dir, t0)
	if got := UniquePath(path); got != path {
		t.Errorf("UniquePath() = %q, want %q for a free name", got, path)
	}

	for _, name := range []string{path, strings.TrimSuffix(path, ".json.gz") + "-2.json.gz"} {
		if err := os.WriteFile(name, []byte("{}"), 0644); err != nil {
			t.Fatal(err)
		}
	}
	want := strings.TrimSuffix(path, ".json.gz") + "-3.json.gz"
	if got := UniquePath(path); got != want {
		t.Errorf("UniquePath() = %q, want %q", got, want)
	}
}

func TestExport_SameInstantKeepsBothArchives(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t, 1)
	dir := t.TempDir()

	first := UniquePath(GeneratePath(dir, t0))
	if _, err := Export(ctx, src, nil, first, t0); err != nil {
		t.Fatal(err)
	}
	second := UniquePath(GeneratePath(dir, t0))
	if second == first {
		t.Fatalf("second export reuses %q", first)
	}
	if _, err := Export(ctx, src, nil, second, t0); err != nil {
		t.Fatal(err)
	}
	list, err := List(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 {
		t.Errorf("List() = %d archives, want 2", len(list))
	}
}

func TestDefaultDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	dir, err := DefaultDir()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(dir, filepath.Join(".recuria", "exports")) {
		t.Errorf("DefaultDir() = %q", dir)
	}
}
