package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mcpcentral/mcp-time/pkg/clock"
	"github.com/mcpcentral/mcp-time/pkg/mcp"
)

func newStdioCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			srv := mcp.New(clock.New(), version, logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			logger.Info("mcp-time stdio transport starting", "version", version)

			serverErrors := make(chan error, 1)
			go func() {
				serverErrors <- srv.Run(ctx, os.Stdin, os.Stdout)
			}()

			select {
			case err := <-serverErrors:
				if err != nil {
					logger.Error("stdio transport stopped", "err", err)
					return err
				}
				logger.Info("stdio transport stopped", "reason", "stream closed")
			case <-ctx.Done():
				logger.Info("stdio transport stopped", "reason", "interrupt")
			}
			return nil
		},
	}
}
