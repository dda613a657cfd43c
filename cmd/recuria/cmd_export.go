package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/recuria/recuria/internal/backup"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [batch-id...]",
		Short: "Export stored batches to a compressed archive",
		Long: `Export batches (all when none are named) to a V2 archive: a JSON
header line with a SHA-256 checksum followed by a gzip payload.

Examples:
  recuria export
  recuria export 20250504-103000-1a2b3c4d --output run.json.gz
  recuria export --keep 5 --max-age 30d`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			output, _ := cmd.Flags().GetString("output")
			keep, _ := cmd.Flags().GetInt("keep")
			maxAge, _ := cmd.Flags().GetString("max-age")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			now := time.Now()
			dir := ""
			if output == "" {
				dir, err = backup.DefaultDir()
				if err != nil {
					return err
				}
				output = backup.UniquePath(backup.GeneratePath(dir, now))
			}

			archive, err := backup.Export(cmd.Context(), st, args, output, now)
			if err != nil {
				return err
			}

			var deleted []string
			if dir != "" && (keep > 0 || maxAge != "") {
				policy, err := retentionPolicy(keep, maxAge, now)
				if err != nil {
					return err
				}
				deleted, err = backup.ApplyRetention(dir, policy)
				if err != nil {
					return fmt.Errorf("retention: %w", err)
				}
			}

			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"path":    output,
					"batches": len(archive.Batches),
					"steps":   archive.StepCount(),
					"deleted": deleted,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d batches (%d steps) to %s\n", len(archive.Batches), archive.StepCount(), output)
			if len(deleted) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d old archives\n", len(deleted))
			}
			return nil
		},
	}
	cmd.Flags().StringP("output", "o", "", "Archive path (default ~/.recuria/exports/recuria-export-<timestamp>.json.gz)")
	cmd.Flags().Int("keep", 0, "Keep only the N newest archives in the default directory")
	cmd.Flags().String("max-age", "", "Also keep archives newer than this (e.g. 30d, 2w, 720h)")
	return cmd
}

func retentionPolicy(keep int, maxAge string, now time.Time) (backup.RetentionPolicy, error) {
	var policies []backup.RetentionPolicy
	if keep > 0 {
		policies = append(policies, &backup.CountPolicy{MaxCount: keep})
	}
	if maxAge != "" {
		d, err := backup.ParseDuration(maxAge)
		if err != nil {
			return nil, err
		}
		policies = append(policies, &backup.AgePolicy{MaxAge: d, Now: now})
	}
	if len(policies) == 1 {
		return policies[0], nil
	}
	return &backup.CompositePolicy{Policies: policies}, nil
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Restore batches from an archive into the history store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			st, err := openStore(cmd.Context(), cmd, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := backup.Restore(cmd.Context(), st, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restored %d batches (%d already present)\n", res.Restored, res.Skipped)
			return nil
		},
	}
}

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify archive integrity",
		Long: `Verify an archive by checking its SHA-256 checksum. V1 (plain JSON)
archives carry no checksum.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			version, err := backup.DetectFormat(path)
			if err != nil {
				return fmt.Errorf("failed to detect format: %w", err)
			}
			if version == backup.FormatV1 {
				if jsonOut {
					return writeJSON(out, map[string]any{"file": path, "version": 1, "valid": true,
						"message": "V1 format: no checksum to verify"})
				}
				fmt.Fprintf(out, "V1 format: no checksum to verify\n  File: %s\n", path)
				return nil
			}

			if err := backup.VerifyChecksum(path); err != nil {
				if jsonOut {
					writeJSON(out, map[string]any{"file": path, "version": 2, "valid": false, "error": err.Error()})
				} else {
					fmt.Fprintf(out, "FAILED: %v\n  File: %s\n", err, path)
				}
				return fmt.Errorf("checksum verification failed")
			}

			if jsonOut {
				return writeJSON(out, map[string]any{"file": path, "version": 2, "valid": true, "message": "Checksum OK"})
			}
			fmt.Fprintf(out, "OK: checksum verified\n  File: %s\n", path)
			return nil
		},
	}
}
