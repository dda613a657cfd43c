package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recuria/recuria/internal/primes"
)

// defaultPrimesLimit matches the primes_to_1M.txt data file.
const defaultPrimesLimit = 1000000

func newPrimesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "primes",
		Short: "Write a primes file for use with run --primes",
		Long: `Write every prime up to --limit, one per line.

Examples:
  recuria primes --output primes_to_1M.txt
  recuria primes --limit 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			output, _ := cmd.Flags().GetString("output")
			jsonOut, _ := cmd.Flags().GetBool("json")

			if limit < 2 {
				return fmt.Errorf("limit must be at least 2, got %d", limit)
			}

			w := cmd.OutOrStdout()
			var f *os.File
			if output != "" && output != "-" {
				var err error
				f, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			bw := bufio.NewWriter(w)
			n, err := primes.Write(bw, limit)
			if err != nil {
				return fmt.Errorf("failed to write primes: %w", err)
			}
			if err := bw.Flush(); err != nil {
				return err
			}

			if f == nil {
				return nil
			}
			if err := f.Close(); err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"file": output, "limit": limit, "count": n})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d primes up to %d to %s\n", n, limit, output)
			return nil
		},
	}

	cmd.Flags().Int("limit", defaultPrimesLimit, "Largest integer to test")
	cmd.Flags().StringP("output", "o", "", "Output file (default stdout)")
	return cmd
}
