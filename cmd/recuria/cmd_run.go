package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recuria/recuria/internal/clock"
	"github.com/recuria/recuria/internal/config"
	"github.com/recuria/recuria/internal/logging"
	"github.com/recuria/recuria/internal/primes"
	"github.com/recuria/recuria/internal/report"
	"github.com/recuria/recuria/internal/simulation"
	"github.com/recuria/recuria/internal/store"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the four-system experiment",
		Long: `Run systems A, B, C and D once and report their histories.

Tables are appended to the table file (system_output.txt by default) and
the batch is saved to the history store unless disabled.

Examples:
  recuria run                              # compact profile: 1000 steps, memory 10
  recuria run --profile extended           # 10000 steps, memory 200
  recuria run --steps 200 --seed 42 --table -
  recuria run --primes primes_to_1M.txt --no-store`,
		RunE: runRun,
	}

	cmd.Flags().String("profile", "", "Named profile: compact or extended")
	cmd.Flags().Int("steps", 0, "Steps per system (overrides config)")
	cmd.Flags().Int("memory", 0, "Decision memory capacity (overrides config)")
	cmd.Flags().Int64("seed", 0, "Seed for system C (0 derives one from the clock)")
	cmd.Flags().String("primes", "", "Primes file (one integer per line); generated when empty")
	cmd.Flags().String("table", "", "Table output file, or - for stdout (default from config)")
	cmd.Flags().Bool("no-table", false, "Do not write tables")
	cmd.Flags().Bool("no-store", false, "Do not save the batch to the history store")
	cmd.Flags().String("log-level", "", "Log level: info, debug or trace")

	return cmd
}

// applyRunFlags layers explicitly set run flags over cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.RecuriaConfig) error {
	flags := cmd.Flags()
	if flags.Changed("profile") {
		name, _ := flags.GetString("profile")
		if err := cfg.ApplyProfile(name); err != nil {
			return err
		}
	}
	if flags.Changed("steps") {
		cfg.Simulation.MaxSteps, _ = flags.GetInt("steps")
	}
	if flags.Changed("memory") {
		cfg.Simulation.MemoryCapacity, _ = flags.GetInt("memory")
	}
	if flags.Changed("seed") {
		cfg.Simulation.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("primes") {
		cfg.Primes.File, _ = flags.GetString("primes")
	}
	if flags.Changed("table") {
		cfg.Output.TableFile, _ = flags.GetString("table")
	}
	if noTable, _ := flags.GetBool("no-table"); noTable {
		cfg.Output.TableFile = ""
	}
	if noStore, _ := flags.GetBool("no-store"); noStore {
		cfg.Store.Driver = ""
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level, _ = flags.GetString("log-level")
	}
	return cfg.Validate()
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	jsonOut, _ := cmd.Flags().GetBool("json")
	root, _ := cmd.Flags().GetString("root")
	out := cmd.OutOrStdout()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyRunFlags(cmd, cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())

	scenario, err := simulation.ScenarioFromConfig(cfg)
	if err != nil {
		return err
	}
	set, err := primes.Resolve(cfg.Primes.File, scenario.PrimeLimit())
	if err != nil {
		return fmt.Errorf("failed to load primes: %w", err)
	}

	var sinks []simulation.Sink
	switch cfg.Output.TableFile {
	case "":
	case "-":
		if !jsonOut {
			sinks = append(sinks, report.NewTableWriter(out))
		}
	default:
		path := cfg.Output.TableFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		tf, err := report.OpenTableFile(path)
		if err != nil {
			return err
		}
		defer tf.Close()
		sinks = append(sinks, tf)
	}

	var st *store.SQLStore
	if cfg.Store.Driver != "" {
		st, err = openStore(ctx, cmd, cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}
		defer st.Close()
		sinks = append(sinks, st)
	}

	decisions := logging.NewDecisionLogger(store.LocalPath(root), cfg.Logging.Level)
	defer decisions.Close()

	runner, err := simulation.New(scenario, set,
		simulation.WithClock(clock.New(cfg.Clock.NTPServer, logger)),
		simulation.WithLogger(logger),
		simulation.WithDecisionLogger(decisions),
		simulation.WithSinks(sinks...))
	if err != nil {
		return err
	}

	batch, err := runner.Run(ctx)
	if batch == nil {
		return err
	}
	if err != nil {
		logger.Error("batch completed with output errors", "batch", batch.ID, "error", err)
	}

	summary := report.Summarize(batch)
	if jsonOut {
		if werr := writeJSON(out, summary); werr != nil {
			return werr
		}
	} else if werr := writeRunSummary(out, summary, cfg, st != nil); werr != nil {
		return werr
	}
	return err
}

func writeRunSummary(w io.Writer, s report.Summary, cfg *config.RecuriaConfig, saved bool) error {
	if err := report.WriteSummary(w, s); err != nil {
		return err
	}
	if cfg.Output.TableFile != "" && cfg.Output.TableFile != "-" {
		fmt.Fprintf(w, "Tables appended to %s\n", cfg.Output.TableFile)
	}
	if saved {
		fmt.Fprintf(w, "Saved to %s store\n", cfg.Store.Driver)
	}
	return nil
}
