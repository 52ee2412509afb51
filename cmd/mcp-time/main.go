package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcpcentral/mcp-time/pkg/config"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "mcp-time",
		Short:   "MCP server exposing date/time tools",
		Version: version,
	}

	root.AddCommand(
		newStdioCmd(),
		newServeCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig returns the file-backed config when a path is given, defaults
// otherwise.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// newLogger builds the diagnostic logger. It writes to stderr so the stdio
// transport keeps stdout for the protocol channel.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}
