package simulation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"

	"github.com/recuria/recuria/internal/clock"
	"github.com/recuria/recuria/internal/engine"
	"github.com/recuria/recuria/internal/logging"
	"github.com/recuria/recuria/internal/sequence"
	"github.com/sourcegraph/conc/pool"
)

// Sink receives every completed Batch. Reports, stores and exporters
// implement it.
type Sink interface {
	Write(ctx context.Context, b *Batch) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, b *Batch) error

// Write implements Sink.
func (f SinkFunc) Write(ctx context.Context, b *Batch) error {
	return f(ctx, b)
}

// Runner orchestrates one four-system experiment per Run call.
type Runner struct {
	scenario  Scenario
	primes    sequence.PrimeSet
	pattern   []float64
	clock     clock.Clock
	logger    *slog.Logger
	decisions *logging.DecisionLogger
	sinks     []Sink
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock sets the clock used for batch timestamps and derived seeds.
func WithClock(c clock.Clock) Option {
	return func(r *Runner) { r.clock = c }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithDecisionLogger enables per-step decision tracing.
func WithDecisionLogger(dl *logging.DecisionLogger) Option {
	return func(r *Runner) { r.decisions = dl }
}

// WithSinks appends sinks that receive every completed batch, in order.
func WithSinks(sinks ...Sink) Option {
	return func(r *Runner) { r.sinks = append(r.sinks, sinks...) }
}

// New validates the scenario and creates a Runner. primes must answer
// membership for every integer up to s.PrimeLimit().
func New(s Scenario, primes sequence.PrimeSet, opts ...Option) (*Runner, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	if primes == nil {
		return nil, fmt.Errorf("prime set is required")
	}

	// D's input only depends on the scenario, so a bad pattern fails here.
	pattern, err := sequence.Repeat(s.MaxSteps, s.Pattern)
	if err != nil {
		return nil, fmt.Errorf("generating pattern input: %w", err)
	}

	r := &Runner{
		scenario: s,
		primes:   primes,
		pattern:  pattern,
		clock:    clock.System{},
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Scenario returns the scenario the runner was built with.
func (r *Runner) Scenario() Scenario {
	return r.scenario
}

// Run executes A, B, C and D, then writes the batch to every sink.
// When sinks fail the batch is still returned together with the joined
// sink errors.
func (r *Runner) Run(ctx context.Context) (*Batch, error) {
	started := r.clock.Now()
	seed := r.scenario.Seed
	if seed == 0 {
		seed = started.UnixNano()
	}

	batch := &Batch{
		ID:        batchID(started.Format("20060102-150405"), started.UnixNano(), seed),
		Seed:      seed,
		StartedAt: started,
		Scenario:  r.scenario,
		Systems:   make([]SystemResult, len(Labels)),
	}

	r.logger.Info("batch started", "batch", batch.ID, "max_steps", r.scenario.MaxSteps,
		"memory_capacity", r.scenario.Engine.MemoryCapacity, "seed", seed)

	p := pool.New().WithContext(ctx).WithCancelOnError()

	// B reads A's finished stability trace, so they share one goroutine.
	p.Go(func(ctx context.Context) error {
		a, err := r.runSystem(batch.ID, SystemA, sequence.PrimeIndicator(r.scenario.MaxSteps, r.primes))
		if err != nil {
			return err
		}
		batch.Systems[0] = a
		if err := ctx.Err(); err != nil {
			return err
		}
		input := sequence.Binarize(a.History.Stability, r.scenario.BinarizeThreshold)
		batch.Systems[1], err = r.runSystem(batch.ID, SystemB, input)
		return err
	})
	p.Go(func(ctx context.Context) error {
		src := rand.New(rand.NewSource(seed))
		var err error
		batch.Systems[2], err = r.runSystem(batch.ID, SystemC, sequence.RandomBinary(r.scenario.MaxSteps, src))
		return err
	})
	p.Go(func(ctx context.Context) error {
		var err error
		batch.Systems[3], err = r.runSystem(batch.ID, SystemD, slices.Clone(r.pattern))
		return err
	})

	if err := p.Wait(); err != nil {
		return nil, fmt.Errorf("batch %s: %w", batch.ID, err)
	}

	for _, sys := range batch.Systems {
		if err := r.decisions.LogRun(batch.ID, string(sys.Label), sys.Signals,
			sys.History.Decisions, sys.History.Stability, sys.History.SelfEval); err != nil {
			r.logger.Warn("decision trace failed", "batch", batch.ID, "system", sys.Label, "error", err)
		}
	}

	batch.FinishedAt = r.clock.Now()
	r.logger.Info("batch finished", "batch", batch.ID, "elapsed", batch.FinishedAt.Sub(started))

	return batch, r.dispatch(ctx, batch)
}

// runSystem runs one simulator over input.
func (r *Runner) runSystem(batchID string, label Label, input []float64) (SystemResult, error) {
	weights := r.scenario.Weights[label]
	r.logger.Log(context.Background(), logging.LevelTrace, "system input",
		"batch", batchID, "system", label, "signals", input)

	h, err := engine.Run(r.scenario.Engine, weights, input)
	if err != nil {
		return SystemResult{}, fmt.Errorf("system %s: %w", label, err)
	}

	r.logger.Debug("system finished", "batch", batchID, "system", label,
		"input", label.InputKind(), "steps", h.Len(), "final_self_eval", lastOr(h.SelfEval, weights.SelfEval))

	return SystemResult{
		Label:   label,
		Input:   label.InputKind(),
		Weights: weights,
		Signals: input,
		History: h,
	}, nil
}

// dispatch writes the batch to every sink. A failing sink does not stop
// the others.
func (r *Runner) dispatch(ctx context.Context, batch *Batch) error {
	var errs []error
	for i, sink := range r.sinks {
		if err := sink.Write(ctx, batch); err != nil {
			r.logger.Error("sink failed", "batch", batch.ID, "sink", i, "error", err)
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// batchID builds a sortable, collision-resistant batch identifier.
func batchID(stamp string, nanos, seed int64) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%d|%d", nanos, seed))
	return stamp + "-" + hex.EncodeToString(h[:4])
}

func lastOr(xs []float64, fallback float64) float64 {
	if len(xs) == 0 {
		return fallback
	}
	return xs[len(xs)-1]
}
