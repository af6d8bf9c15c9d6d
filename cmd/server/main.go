// Package main is the entrypoint for the hirepipe API server and its
// operational commands.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const app = "hirepipe"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           app,
		Short:         "hirepipe serves compatibility scores and selection processes for recruiting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogger(os.Getenv("LOG_LEVEL"))
		},
		// Running the binary with no subcommand starts the server.
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newBackfillCmd())
	return root
}

func setupLogger(level string) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
