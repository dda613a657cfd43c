package store

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/recuria/recuria/internal/clock"
	"github.com/recuria/recuria/internal/primes"
	"github.com/recuria/recuria/internal/simulation"
)

// runBatch runs a small scenario with a fixed clock.
func runBatch(t *testing.T, steps int, seed int64, at time.Time) *simulation.Batch {
	t.Helper()
	s := simulation.DefaultScenario()
	s.MaxSteps = steps
	s.Seed = seed

	r, err := simulation.New(s, primes.Generate(s.PrimeLimit()), simulation.WithClock(clock.Fixed(at)))
	if err != nil {
		t.Fatalf("simulation.New() error = %v", err)
	}
	b, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	return b
}

func assertSameBatch(t *testing.T, got, want *simulation.Batch) {
	t.Helper()
	if got.ID != want.ID || got.Seed != want.Seed {
		t.Errorf("batch = %s/%d, want %s/%d", got.ID, got.Seed, want.ID, want.Seed)
	}
	if !got.StartedAt.Equal(want.StartedAt) || !got.FinishedAt.Equal(want.FinishedAt) {
		t.Errorf("times = %v..%v, want %v..%v", got.StartedAt, got.FinishedAt, want.StartedAt, want.FinishedAt)
	}
	if !reflect.DeepEqual(got.Scenario, want.Scenario) {
		t.Errorf("scenario = %+v, want %+v", got.Scenario, want.Scenario)
	}
	if !reflect.DeepEqual(got.Systems, want.Systems) {
		t.Error("systems differ after round trip")
	}
}

var t0 = time.Date(2025, 5, 4, 10, 30, 0, 0, time.UTC)
