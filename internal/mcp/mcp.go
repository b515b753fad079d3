// Package mcp implements the Model Context Protocol server for Hyoka.
//
// The MCP server exposes the same capabilities as the HTTP API through MCP
// tools and resources, so agents can score their own decisions, record
// forecasts, and review calibration and regret.
package mcp

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
	"github.com/ashita-ai/hyoka/internal/storage"
)

// Server wraps the MCP server with Hyoka's service layer.
type Server struct {
	mcpServer *mcpserver.MCPServer
	svc       *evaluation.Service
	logger    *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(svc *evaluation.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		svc:    svc,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"hyoka",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	)

	s.registerResources()
	s.registerTools()
	s.registerPrompts()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}

// failure renders a service error as a tool error, labelled by kind so the
// calling agent can tell bad input from missing data.
func failure(op string, err error) *mcplib.CallToolResult {
	switch {
	case errors.Is(err, model.ErrValidation):
		var lines []string
		for _, ve := range model.ValidationErrors(err) {
			lines = append(lines, "- "+ve.Error())
		}
		if len(lines) == 0 {
			return errorResult(fmt.Sprintf("%s: invalid input: %v", op, err))
		}
		return errorResult(fmt.Sprintf("%s: invalid input:\n%s", op, strings.Join(lines, "\n")))
	case errors.Is(err, model.ErrInsufficientData):
		return errorResult(fmt.Sprintf("%s: insufficient data: %v", op, err))
	case errors.Is(err, storage.ErrNotFound):
		return errorResult(fmt.Sprintf("%s: not found: %v", op, err))
	case errors.Is(err, storage.ErrConflict):
		return errorResult(fmt.Sprintf("%s: conflict, retry the request: %v", op, err))
	default:
		return errorResult(fmt.Sprintf("%s failed: %v", op, err))
	}
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("encode result: %v", err))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}
