package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpcentral/mcp-time/pkg/audit"
	"github.com/mcpcentral/mcp-time/pkg/clock"
	"github.com/mcpcentral/mcp-time/pkg/mcp"
)

func newServeCmd() *cobra.Command {
	var configPath string
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			logger := newLogger()

			var auditLog *audit.Logger
			if cfg.Audit.Enabled {
				auditLog, err = audit.New(cfg.Audit)
				if err != nil {
					return err
				}
				defer auditLog.Close()
			}

			srv := mcp.New(clock.New(), version, logger)
			h := mcp.NewHTTPServer(srv, cfg.Policy(), auditLog, logger)

			server := &http.Server{
				Addr:    cfg.Listen,
				Handler: h.Router(),
			}

			serverErrors := make(chan error, 1)
			go func() {
				logger.Info("mcp-time http transport starting", "addr", cfg.Listen, "version", version)
				serverErrors <- server.ListenAndServe()
			}()

			shutdown := make(chan os.Signal, 1)
			signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

			select {
			case err := <-serverErrors:
				return err
			case sig := <-shutdown:
				logger.Info("shutting down", "signal", sig.String())
				server.Close()
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides config)")
	return cmd
}
