// Package hyoka is the public API for embedding the Hyoka decision-quality
// server.
//
//	app, err := hyoka.New(ctx,
//	    hyoka.WithVersion(version),
//	    hyoka.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// internal/* never imports this package.
package hyoka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/hyoka/api"
	"github.com/ashita-ai/hyoka/internal/config"
	"github.com/ashita-ai/hyoka/internal/mcp"
	"github.com/ashita-ai/hyoka/internal/ratelimit"
	"github.com/ashita-ai/hyoka/internal/server"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
	"github.com/ashita-ai/hyoka/internal/storage"
	"github.com/ashita-ai/hyoka/internal/storage/lite"
	"github.com/ashita-ai/hyoka/internal/telemetry"
	"github.com/ashita-ai/hyoka/migrations"
)

// store is what the App needs from a storage backend.
type store interface {
	evaluation.Repository
	Ping(ctx context.Context) error
	Close() error
}

// App is the Hyoka server lifecycle. Construct with New(), run with Run().
type App struct {
	cfg          config.Config
	store        store
	svc          *evaluation.Service
	mcp          *mcp.Server
	srv          *server.Server
	limiter      ratelimit.Limiter
	otelShutdown telemetry.Shutdown
	stdin        io.Reader
	stdout       io.Writer
	logger       *slog.Logger
	version      string
}

// New loads configuration, opens the store, and wires the evaluation
// service into the MCP and HTTP transports. It does not accept connections;
// call Run.
func New(ctx context.Context, opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	o.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("hyoka starting",
		"version", version,
		"transport", cfg.Transport,
		"store", cfg.Store,
	)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:       cfg.OTELEndpoint,
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Insecure:       cfg.OTELInsecure,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		_ = otelShutdown(context.Background())
		return nil, err
	}

	svc, err := evaluation.New(st, evaluation.Config{
		CalibrationBuckets: cfg.CalibrationBuckets,
		TrendPeriods:       cfg.TrendPeriods,
		WeightProfile:      cfg.WeightProfile,
	}, logger)
	if err != nil {
		_ = st.Close()
		_ = otelShutdown(context.Background())
		return nil, fmt.Errorf("evaluation service: %w", err)
	}

	mcpSrv := mcp.New(svc, logger, version)
	limiter := ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst)

	srv := server.New(server.ServerConfig{
		Evaluation:          svc,
		Store:               st,
		StoreName:           cfg.Store,
		Logger:              logger,
		Limiter:             limiter,
		MCPServer:           mcpSrv.MCPServer(),
		OpenAPISpec:         api.OpenAPISpec,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
	})

	stdin, stdout := o.stdin, o.stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}

	return &App{
		cfg:          cfg,
		store:        st,
		svc:          svc,
		mcp:          mcpSrv,
		srv:          srv,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		stdin:        stdin,
		stdout:       stdout,
		logger:       logger,
		version:      version,
	}, nil
}

func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store, error) {
	switch cfg.Store {
	case config.StorePostgres:
		db, err := storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrations: %w", err)
		}
		return db, nil
	case config.StoreSQLite:
		s, err := lite.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("storage: unknown store %q", cfg.Store)
	}
}

// Handler returns the root HTTP handler. Useful for embedding the API in
// another server or for tests.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run serves the configured transport until ctx is cancelled or the
// transport fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	var runErr error
	switch a.cfg.Transport {
	case config.TransportStdio:
		runErr = a.serveStdio(ctx)
	default:
		runErr = a.serveHTTP(ctx)
	}

	if err := a.Shutdown(context.Background()); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

func (a *App) serveHTTP(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
}

func (a *App) serveStdio(ctx context.Context) error {
	a.logger.Info("mcp stdio transport ready")
	stdio := mcpserver.NewStdioServer(a.mcp.MCPServer())
	stdio.SetErrorLogger(slog.NewLogLogger(a.logger.Handler(), slog.LevelError))
	err := stdio.Listen(ctx, a.stdin, a.stdout)
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("mcp stdio: %w", err)
}

// Shutdown drains HTTP requests, then releases the limiter, the store, and
// the OTEL providers. Each phase runs even if an earlier one failed.
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("hyoka shutting down")
	var errs []error

	if a.cfg.Transport == config.TransportHTTP {
		httpCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
		if err := a.srv.Shutdown(httpCtx); err != nil {
			a.logger.Error("http shutdown error", "error", err)
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		cancel()
	}

	if err := a.limiter.Close(); err != nil {
		errs = append(errs, fmt.Errorf("rate limiter: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}

	otelCtx, cancel := context.WithTimeout(ctx, a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.otelShutdown(otelCtx); err != nil {
		errs = append(errs, fmt.Errorf("telemetry: %w", err))
	}

	a.logger.Info("hyoka stopped")
	return errors.Join(errs...)
}
