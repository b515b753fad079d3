package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/hyoka/internal/service/dqs"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
)

const (
	weightsPrefix   = "hyoka://weights/"
	decisionsPrefix = "hyoka://decisions/"
	historySuffix   = "/history"
)

func (s *Server) registerResources() {
	// hyoka://weights/default: the built-in dimension weights.
	s.mcpServer.AddResource(
		mcplib.NewResource(
			weightsPrefix+evaluation.DefaultProfile,
			"Default Weights",
			mcplib.WithResourceDescription("Built-in dimension weights used when no profile is named"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleWeights,
	)

	// hyoka://weights/{name}: a named weight profile.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			weightsPrefix+"{name}",
			"Weight Profile",
			mcplib.WithTemplateDescription("Dimension weights for a named profile"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleWeights,
	)

	// hyoka://decisions/{id}/history: every scored version of a decision.
	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			decisionsPrefix+"{id}"+historySuffix,
			"Decision History",
			mcplib.WithTemplateDescription("All scored versions of a decision, oldest first"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleDecisionHistory,
	)
}

func (s *Server) handleWeights(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	name := strings.TrimPrefix(uri, weightsPrefix)
	if name == uri || name == "" {
		return nil, fmt.Errorf("mcp: invalid weights URI: %s", uri)
	}

	w, err := s.svc.WeightProfile(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("mcp: weights: %w", err)
	}
	return jsonResource(uri, map[string]any{
		"profile":     name,
		"weights":     w,
		"grade_bands": dqs.DefaultGradeBands(),
	})
}

func (s *Server) handleDecisionHistory(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	id, err := parseDecisionHistoryURI(uri)
	if err != nil {
		return nil, err
	}

	history, err := s.svc.DecisionHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mcp: decision history: %w", err)
	}
	return jsonResource(uri, map[string]any{
		"decision_id": id,
		"versions":    history,
	})
}

// parseDecisionHistoryURI extracts the decision ID from
// hyoka://decisions/{id}/history.
func parseDecisionHistoryURI(uri string) (uuid.UUID, error) {
	if !strings.HasPrefix(uri, decisionsPrefix) || !strings.HasSuffix(uri, historySuffix) {
		return uuid.Nil, fmt.Errorf("mcp: invalid decision history URI: %s", uri)
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(uri, decisionsPrefix), historySuffix)
	if raw == "" {
		return uuid.Nil, fmt.Errorf("mcp: empty decision id in URI: %s", uri)
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("mcp: decision id %q is not a UUID", raw)
	}
	return id, nil
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
