package hyoka

import (
	"io"
	"log/slog"

	"github.com/ashita-ai/hyoka/internal/config"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds overrides applied on top of the environment config.
type resolvedOptions struct {
	port        int
	transport   string
	store       string
	databaseURL string
	sqlitePath  string
	logger      *slog.Logger
	version     string
	stdin       io.Reader
	stdout      io.Writer
}

func (o resolvedOptions) apply(cfg *config.Config) {
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.transport != "" {
		cfg.Transport = o.transport
	}
	if o.store != "" {
		cfg.Store = o.store
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.sqlitePath != "" {
		cfg.SQLitePath = o.sqlitePath
	}
}

// WithPort overrides the TCP port from config (HYOKA_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithTransport selects "http" or "stdio" (HYOKA_TRANSPORT env var).
func WithTransport(transport string) Option {
	return func(o *resolvedOptions) { o.transport = transport }
}

// WithStore selects the "postgres" or "sqlite" backend (HYOKA_STORE env var).
func WithStore(store string) Option {
	return func(o *resolvedOptions) { o.store = store }
}

// WithDatabaseURL overrides the Postgres connection string (DATABASE_URL env var).
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithSQLitePath overrides the SQLite database file (HYOKA_SQLITE_PATH env var).
func WithSQLitePath(path string) Option {
	return func(o *resolvedOptions) { o.sqlitePath = path }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithStdio replaces os.Stdin and os.Stdout for the stdio transport.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(o *resolvedOptions) {
		o.stdin = in
		o.stdout = out
	}
}
