package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recuria/recuria/internal/config"
	"github.com/recuria/recuria/internal/store"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "recuria",
		Short: "Recursive feedback simulator",
		Long: `recuria runs four small self-evaluating decision systems side by side.

Each system keeps a bounded memory of its own binary decisions, scores how
stable that memory is, and nudges its self-evaluation weight up or down in
response. System A reads the prime indicator sequence, B reads A's
stability trace, C reads random bits and D reads a fixed repeating pattern.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("root", ".", "Project root directory (holds .recuria/)")
	rootCmd.PersistentFlags().String("config", "", "Config file (default ~/.recuria/config.yaml)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newPrimesCmd(),
		newHistoryCmd(),
		newExportCmd(),
		newImportCmd(),
		newVerifyCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"version": version,
					"commit":  commit,
					"date":    date,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "recuria version %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}

// loadConfig reads --config when given, otherwise the default locations.
// Environment overrides apply in both cases.
func loadConfig(cmd *cobra.Command) (*config.RecuriaConfig, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		return cfg, nil
	}

	cfg, err := config.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStore opens the configured history store. An empty sqlite DSN
// places the database under the project root.
func openStore(ctx context.Context, cmd *cobra.Command, cfg *config.RecuriaConfig) (*store.SQLStore, error) {
	if cfg.Store.Driver == "" {
		return nil, fmt.Errorf("no store configured (set store.driver)")
	}
	dsn := cfg.Store.DSN
	if cfg.Store.Driver == config.DriverSQLite && dsn == "" {
		root, _ := cmd.Flags().GetString("root")
		dsn = store.DefaultSQLitePath(root)
	}
	return store.Open(ctx, cfg.Store.Driver, dsn)
}

// signalContext cancels on interrupt or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
