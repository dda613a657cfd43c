package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/recuria/recuria/internal/report"
	"github.com/recuria/recuria/internal/simulation"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse batches saved in the history store",
	}
	cmd.AddCommand(newHistoryListCmd(), newHistoryShowCmd())
	return cmd
}

func newHistoryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored batches, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			limit, _ := cmd.Flags().GetInt("limit")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			infos, err := st.ListBatches(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"batches": infos, "count": len(infos)})
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No batches stored.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTEPS\tMEMORY\tSEED")
			for _, info := range infos {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n", info.ID,
					info.StartedAt.Format("2006-01-02 15:04:05"), info.MaxSteps, info.MemoryCapacity, info.Seed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().Int("limit", 20, "Maximum number of batches (0 for all)")
	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <batch-id>",
		Short: "Show a stored batch",
		Long: `Show the summary of a stored batch, or with --table the full
per-step table of every system (or of --system only).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			table, _ := cmd.Flags().GetBool("table")
			system, _ := cmd.Flags().GetString("system")
			out := cmd.OutOrStdout()

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			batch, err := st.LoadBatch(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if system != "" {
				label := simulation.Label(strings.ToUpper(system))
				sys, ok := batch.System(label)
				if !ok {
					return fmt.Errorf("batch %s has no system %s", batch.ID, system)
				}
				batch.Systems = []simulation.SystemResult{*sys}
			}

			switch {
			case jsonOut && table:
				return writeJSON(out, batch)
			case jsonOut:
				return writeJSON(out, report.Summarize(batch))
			case table:
				return report.NewTableWriter(out).Write(cmd.Context(), batch)
			default:
				return report.WriteSummary(out, report.Summarize(batch))
			}
		},
	}
	cmd.Flags().Bool("table", false, "Print the per-step tables")
	cmd.Flags().String("system", "", "Only show one system (A, B, C or D)")
	return cmd
}
