package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/recuria/recuria/internal/clock"
	"github.com/recuria/recuria/internal/logging"
	"github.com/recuria/recuria/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Serve recuria tools over MCP (stdio)",
		Long: `Run an MCP server on stdin/stdout exposing recuria_simulate,
recuria_history, recuria_run and recuria_export. Logs go to stderr.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			absRoot, err := filepath.Abs(root)
			if err != nil {
				return fmt.Errorf("failed to resolve root: %w", err)
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := logging.NewLogger(cfg.Logging.Level, os.Stderr)

			serverCfg := &mcp.Config{
				Name:     "recuria",
				Version:  version,
				Root:     absRoot,
				Settings: cfg,
				Clock:    clock.New(cfg.Clock.NTPServer, logger),
				Logger:   logger,
			}
			if cfg.Store.Driver != "" {
				st, err := openStore(cmd.Context(), cmd, cfg)
				if err != nil {
					return fmt.Errorf("failed to open store: %w", err)
				}
				defer st.Close()
				serverCfg.Store = st
			}

			server, err := mcp.NewServer(serverCfg)
			if err != nil {
				return err
			}
			logger.Info("mcp server starting", "root", absRoot, "store", cfg.Store.Driver)
			return server.Run(cmd.Context())
		},
	}
}
