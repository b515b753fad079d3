package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/hyoka/internal/config"
)

// version is set at build time via -ldflags.
var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hyoka",
		Short: "Hyoka - decision quality analytics",
		Long: `Hyoka scores decisions on six quality dimensions, tracks forecast
calibration, measures counterfactual regret, and aggregates decision
portfolios. It serves an HTTP API and an MCP server for agents.`,
		Version:      version,
		SilenceUsage: true,
	}

	logLevel := cmd.PersistentFlags().String("log-level", os.Getenv("HYOKA_LOG_LEVEL"),
		"Log level: debug, info, warn, error (default from HYOKA_LOG_LEVEL)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := config.ParseLogLevel(*logLevel)
		if err != nil {
			return &usageError{err: err}
		}
		// Logs go to stderr; stdout carries the MCP stdio transport.
		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newScoreCommand())

	return cmd
}

func execute() error {
	return newRootCommand().Execute()
}
