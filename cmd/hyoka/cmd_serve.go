package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/hyoka"
)

// serveFlags are overrides for the environment configuration.
type serveFlags struct {
	port        int
	transport   string
	store       string
	databaseURL string
	sqlitePath  string
}

func (f *serveFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.port, "port", 0, "HTTP port (overrides HYOKA_PORT)")
	cmd.Flags().StringVar(&f.transport, "transport", "", `"http" or "stdio" (overrides HYOKA_TRANSPORT)`)
	cmd.Flags().StringVar(&f.store, "store", "", `"postgres" or "sqlite" (overrides HYOKA_STORE)`)
	cmd.Flags().StringVar(&f.databaseURL, "database-url", "", "Postgres DSN (overrides DATABASE_URL)")
	cmd.Flags().StringVar(&f.sqlitePath, "sqlite-path", "", "SQLite file (overrides HYOKA_SQLITE_PATH)")
}

func (f *serveFlags) options() []hyoka.Option {
	return []hyoka.Option{
		hyoka.WithVersion(version),
		hyoka.WithLogger(slog.Default()),
		hyoka.WithPort(f.port),
		hyoka.WithTransport(f.transport),
		hyoka.WithStore(f.store),
		hyoka.WithDatabaseURL(f.databaseURL),
		hyoka.WithSQLitePath(f.sqlitePath),
	}
}

func newServeCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API or the MCP stdio transport",
		Long: `Serve the HTTP API (with MCP over streamable HTTP at /mcp) or, with
--transport stdio, the MCP server over stdin/stdout.

Configuration comes from the environment (and a .env file if present);
flags override it.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			app, err := hyoka.New(ctx, flags.options()...)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}
	flags.register(cmd)
	return cmd
}

func newMigrateCommand() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := hyoka.New(cmd.Context(), flags.options()...)
			if err != nil {
				return err
			}
			slog.Info("migrations applied")
			return app.Shutdown(context.Background())
		},
	}
	flags.register(cmd)
	return cmd
}
