package mcp

import (
	"context"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promptText(t *testing.T, result *mcplib.GetPromptResult) string {
	t.Helper()
	require.NotEmpty(t, result.Messages, "expected at least one message")
	msg := result.Messages[0]
	assert.Equal(t, mcplib.RoleUser, msg.Role)
	tc, ok := msg.Content.(mcplib.TextContent)
	require.True(t, ok, "message content should be TextContent")
	return tc.Text
}

func TestScoreDecisionPrompt(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleScoreDecisionPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "score-decision",
			Arguments: map[string]string{"decision": "adopt gRPC for internal calls"},
		},
	})
	require.NoError(t, err)

	text := promptText(t, result)
	assert.Contains(t, text, "adopt gRPC for internal calls")
	assert.Contains(t, text, "hyoka_score")
	for _, dim := range []string{"framing", "alternatives", "information", "values_tradeoffs", "reasoning", "commitment"} {
		assert.Contains(t, text, dim, "prompt should describe every dimension")
	}
}

func TestScoreDecisionPrompt_MissingDecision(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleScoreDecisionPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "score-decision", Arguments: map[string]string{}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decision")
}

func TestReviewOutcomePrompt(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleReviewOutcomePrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{
			Name:      "review-outcome",
			Arguments: map[string]string{"decision_id": "0b9e3c4e-8f51-4c0d-9a59-0f1b8b7d2a11"},
		},
	})
	require.NoError(t, err)

	text := promptText(t, result)
	assert.Contains(t, text, "hyoka_outcome")
	assert.Contains(t, text, `decision_id="0b9e3c4e-8f51-4c0d-9a59-0f1b8b7d2a11"`)

	_, err = s.handleReviewOutcomePrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "review-outcome"},
	})
	require.Error(t, err)
}

func TestAgentSetupPrompt(t *testing.T) {
	s := newTestServer(t)

	result, err := s.handleAgentSetupPrompt(context.Background(), mcplib.GetPromptRequest{
		Params: mcplib.GetPromptParams{Name: "agent-setup"},
	})
	require.NoError(t, err)

	text := promptText(t, result)
	for _, tool := range []string{"hyoka_score", "hyoka_rerate", "hyoka_predict", "hyoka_calibration",
		"hyoka_outcome", "hyoka_regret", "hyoka_portfolio"} {
		assert.Contains(t, text, tool)
	}
}
