// Package server implements the HTTP API server for Hyoka.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/hyoka/internal/ratelimit"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the Hyoka HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): Limiter, MCPServer, OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	Evaluation *evaluation.Service
	Store      Pinger
	StoreName  string
	Logger     *slog.Logger

	// Optional dependencies (nil = disabled).
	Limiter     ratelimit.Limiter
	MCPServer   *mcpserver.MCPServer
	OpenAPISpec []byte

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Evaluation:          cfg.Evaluation,
		Store:               cfg.Store,
		StoreName:           cfg.StoreName,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	limit := ratelimit.Middleware(cfg.Limiter, ratelimit.IPKeyFunc, func(r *http.Request) string {
		return RequestIDFromContext(r.Context())
	}, cfg.Logger)

	mux := http.NewServeMux()

	// Decisions and their outcomes.
	mux.Handle("POST /v1/decisions", limit(http.HandlerFunc(h.HandleScoreDecision)))
	mux.Handle("GET /v1/decisions/{id}", limit(http.HandlerFunc(h.HandleGetDecision)))
	mux.Handle("GET /v1/decisions/{id}/history", limit(http.HandlerFunc(h.HandleDecisionHistory)))
	mux.Handle("POST /v1/decisions/{id}/rerate", limit(http.HandlerFunc(h.HandleRerateDecision)))
	mux.Handle("POST /v1/decisions/{id}/outcome", limit(http.HandlerFunc(h.HandleRecordOutcome)))
	mux.Handle("GET /v1/decisions/{id}/regret", limit(http.HandlerFunc(h.HandleRegret)))

	// Calibration.
	mux.Handle("POST /v1/predictions", limit(http.HandlerFunc(h.HandleRecordPrediction)))
	mux.Handle("GET /v1/calibration", limit(http.HandlerFunc(h.HandleCalibration)))

	// Portfolio.
	mux.Handle("GET /v1/portfolio", limit(http.HandlerFunc(h.HandlePortfolio)))

	// Weight profiles.
	mux.Handle("GET /v1/weights/{name}", limit(http.HandlerFunc(h.HandleGetWeights)))
	mux.Handle("PUT /v1/weights/{name}", limit(http.HandlerFunc(h.HandleSaveWeights)))

	// MCP StreamableHTTP transport.
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", limit(mcpserver.NewStreamableHTTPServer(cfg.MCPServer)))
	}

	// Health and API description (no rate limit).
	mux.HandleFunc("GET /health", h.HandleHealth)
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      handler,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
