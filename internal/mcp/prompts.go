package mcp

import (
	"context"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	// score-decision: walks the agent through rating a decision it just made.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("score-decision",
			mcplib.WithPromptDescription("Rate the quality of a decision on the six dimensions and record it"),
			mcplib.WithArgument("decision",
				mcplib.ArgumentDescription("What was decided"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleScoreDecisionPrompt,
	)

	// review-outcome: asks for the realized outcome and unchosen alternatives.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("review-outcome",
			mcplib.WithPromptDescription("Record how a decision turned out and review its regret"),
			mcplib.WithArgument("decision_id",
				mcplib.ArgumentDescription("The decision_id returned by hyoka_score"),
				mcplib.RequiredArgument(),
			),
		),
		s.handleReviewOutcomePrompt,
	)

	// agent-setup: system prompt snippet explaining the Hyoka workflow.
	s.mcpServer.AddPrompt(
		mcplib.NewPrompt("agent-setup",
			mcplib.WithPromptDescription("System prompt snippet explaining the Hyoka decision quality workflow (score, predict, review)"),
		),
		s.handleAgentSetupPrompt,
	)
}

func (s *Server) handleScoreDecisionPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	decision := request.Params.Arguments["decision"]
	if decision == "" {
		return nil, fmt.Errorf("decision argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: "Score the decision process",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Rate how well this decision was made: %q

Judge the process, not the result. Give each dimension an integer from 1 to 10:

- framing: was the right problem being solved, with the right scope?
- alternatives: were genuinely different options considered?
- information: was the relevant evidence gathered and checked?
- values_tradeoffs: were the trade-offs between goals made explicit?
- reasoning: does the choice follow logically from the information?
- commitment: is there a clear owner and a plan to act on it?

Then CALL hyoka_score with decision, decision_maker, decision_date and the ratings.
Read dqs.weakest_dimension and dqs.improvement_suggestion and say what you
would do differently next time.`, decision),
				},
			},
		},
	}, nil
}

func (s *Server) handleReviewOutcomePrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	decisionID := request.Params.Arguments["decision_id"]
	if decisionID == "" {
		return nil, fmt.Errorf("decision_id argument is required")
	}

	return &mcplib.GetPromptResult{
		Description: "Review the outcome of a decision",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Review how decision %s turned out.

1. STATE the option that was chosen and its realized outcome on a numeric
   scale where higher is better.
2. ESTIMATE, on the same scale, what each option you did not take would
   most plausibly have produced. Be honest; hindsight makes rejected options
   look better than they were.
3. CALL hyoka_outcome with decision_id="%s", chosen, outcome_value and alternatives.
4. READ chosen_regret. Regret is about outcomes; a good process can still
   produce regret, so compare it with the decision's DQS before drawing lessons.`, decisionID, decisionID),
				},
			},
		},
	}, nil
}

func (s *Server) handleAgentSetupPrompt(ctx context.Context, request mcplib.GetPromptRequest) (*mcplib.GetPromptResult, error) {
	return &mcplib.GetPromptResult{
		Description: "Hyoka decision quality workflow for AI agents",
		Messages: []mcplib.PromptMessage{
			{
				Role: mcplib.RoleUser,
				Content: mcplib.TextContent{
					Type: "text",
					Text: `You have access to Hyoka, which measures how well decisions are made
separately from how they turned out.

## The Pattern: Score, Predict, Review

### When you decide:
Call hyoka_score with six 1-10 ratings of your process. The response tells
you your weakest dimension.

### When you forecast:
Once a forecast resolves, call hyoka_predict with your stated confidence and
whether it came true. hyoka_calibration shows whether your 80% really means 80%.

### When results arrive:
Call hyoka_outcome with what happened and your estimates for the options you
did not take. hyoka_regret reads the assessment back later.

## Available Tools

- hyoka_score: Score a new decision (DQS)
- hyoka_rerate: Store revised ratings as a new version
- hyoka_predict: Record a resolved prediction
- hyoka_calibration: Brier score and calibration buckets
- hyoka_outcome: Record a realized outcome with alternatives
- hyoka_regret: Counterfactual regret for a decision
- hyoka_portfolio: Aggregate quality, trend and regret over a timeframe

## Grades

- Excellent: DQS 8.5 and above
- Good: 7.0 to 8.5
- Fair: 5.0 to 7.0
- Poor: below 5.0`,
				},
			},
		},
	}, nil
}
