// Package simulation orchestrates the four-system feedback experiment.
//
// A Runner generates each system's input, runs an independent engine
// simulator per system, and hands the completed Batch to every configured
// Sink:
//
//   - A reads the prime indicator of 2, 3, 4, ...
//   - B reads A's stability trace, binarized at a threshold, so it starts
//     only after A completes
//   - C reads uniform random bits from a seeded source
//   - D reads a repeating pattern (1011 by default)
//
// The A→B chain, C and D run concurrently. No state is shared between
// systems.
//
// Usage:
//
//	r, err := simulation.New(simulation.DefaultScenario(), primes.Generate(1001),
//	    simulation.WithSinks(report.NewTableWriter(os.Stdout)))
//	if err != nil {
//	    return err
//	}
//	batch, err := r.Run(ctx)
package simulation
