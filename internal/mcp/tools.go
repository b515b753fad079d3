package mcp

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
	"github.com/ashita-ai/hyoka/internal/service/portfolio"
)

var ratingsSchema = func() map[string]any {
	props := make(map[string]any, model.NumDimensions)
	for _, d := range model.AllDimensions() {
		props[d.String()] = map[string]any{"type": "integer", "minimum": 1, "maximum": 10}
	}
	return props
}()

func (s *Server) registerTools() {
	// hyoka_score: rate a new decision on the six quality dimensions.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_score",
			mcplib.WithDescription(`Score the quality of a decision process (DQS).

WHEN TO USE: After making a non-trivial decision, rate how well it was made,
not how it turned out. Each of the six dimensions is an integer from 1 to 10:
framing, alternatives, information, values_tradeoffs, reasoning, commitment.

WHAT YOU GET BACK:
- scorecard: the stored decision with its decision_id (keep it for later tools)
- dqs.score: weighted score from 1 to 10
- dqs.grade: Excellent, Good, Fair or Poor
- dqs.weakest_dimension and dqs.improvement_suggestion: what to work on next

EXAMPLE: decision="migrate sessions to Redis", decision_maker="platform-team",
decision_date="2026-03-01", ratings={"framing":8,"alternatives":6,...}`),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("decision",
				mcplib.Description("What was decided, stated as a fact"),
				mcplib.Required(),
			),
			mcplib.WithString("decision_maker",
				mcplib.Description("Who made the decision"),
				mcplib.Required(),
			),
			mcplib.WithString("decision_date",
				mcplib.Description("When the decision was made (RFC 3339 or YYYY-MM-DD)"),
				mcplib.Required(),
			),
			mcplib.WithString("category",
				mcplib.Description("Optional grouping used by portfolio analysis. Defaults to \"general\"."),
			),
			mcplib.WithObject("ratings",
				mcplib.Description("Integer rating from 1 to 10 for every dimension"),
				mcplib.Properties(ratingsSchema),
				mcplib.Required(),
			),
			mcplib.WithString("weight_profile",
				mcplib.Description("Optional named weight profile. Defaults to the server's configured profile."),
			),
		),
		s.handleScore,
	)

	// hyoka_rerate: store a new version of a decision with revised ratings.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_rerate",
			mcplib.WithDescription(`Re-rate an existing decision. Earlier versions are kept; the new
version supersedes the latest one and becomes the decision's current score.`),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("decision_id",
				mcplib.Description("The decision_id returned by hyoka_score"),
				mcplib.Required(),
			),
			mcplib.WithObject("ratings",
				mcplib.Description("Integer rating from 1 to 10 for every dimension"),
				mcplib.Properties(ratingsSchema),
				mcplib.Required(),
			),
			mcplib.WithString("weight_profile",
				mcplib.Description("Optional weight profile. If omitted, the previous version's weights are reused."),
			),
		),
		s.handleRerate,
	)

	// hyoka_predict: record a resolved forecast.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_predict",
			mcplib.WithDescription(`Record a probabilistic prediction together with whether it came true.

Predictions feed calibration: over many forecasts, a well calibrated
forecaster's 70% predictions come true about 70% of the time.
Confidence must be strictly between 0 and 1.`),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("statement",
				mcplib.Description("What was predicted"),
				mcplib.Required(),
			),
			mcplib.WithNumber("confidence",
				mcplib.Description("Stated probability that the statement is true"),
				mcplib.Required(),
				mcplib.Min(0),
				mcplib.Max(1),
			),
			mcplib.WithBoolean("actual",
				mcplib.Description("Whether the statement turned out to be true"),
				mcplib.Required(),
			),
			mcplib.WithString("decision_id",
				mcplib.Description("Optional decision this prediction informed"),
			),
			mcplib.WithString("prediction_maker",
				mcplib.Description("Optional forecaster name, used to filter calibration"),
			),
		),
		s.handlePredict,
	)

	// hyoka_calibration: analyze stored predictions.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_calibration",
			mcplib.WithDescription(`Analyze how well stated confidence matches observed outcomes.

WHAT YOU GET BACK:
- brier_score: mean squared error of the forecasts (0 is perfect)
- score: calibration score from 0 to 1 (1 is perfectly calibrated)
- overconfidence: positive when forecasts claim more certainty than outcomes justify
- buckets: predicted versus observed rate per confidence band

Requires at least one matching prediction.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("prediction_maker",
				mcplib.Description("Optional: only predictions by this forecaster"),
			),
			mcplib.WithString("decision_id",
				mcplib.Description("Optional: only predictions linked to this decision"),
			),
			mcplib.WithString("since",
				mcplib.Description("Optional lower bound on recording time (RFC 3339 or YYYY-MM-DD)"),
			),
			mcplib.WithString("until",
				mcplib.Description("Optional upper bound on recording time (RFC 3339 or YYYY-MM-DD)"),
			),
		),
		s.handleCalibration,
	)

	// hyoka_outcome: record what happened and what the alternatives would have yielded.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_outcome",
			mcplib.WithDescription(`Record the realized outcome of a decision alongside estimated outcomes
for the options that were not chosen, and get the regret assessment back.

Outcome values are on any consistent scale where higher is better.
Recording again replaces the earlier outcome.`),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("decision_id",
				mcplib.Description("The decision_id returned by hyoka_score"),
				mcplib.Required(),
			),
			mcplib.WithString("chosen",
				mcplib.Description("Name of the option that was taken"),
				mcplib.Required(),
			),
			mcplib.WithNumber("outcome_value",
				mcplib.Description("Realized outcome of the chosen option"),
				mcplib.Required(),
			),
			mcplib.WithArray("alternatives",
				mcplib.Description("Unchosen options with their estimated outcomes"),
				mcplib.Items(map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":              map[string]any{"type": "string"},
						"estimated_outcome": map[string]any{"type": "number"},
					},
					"required": []string{"name", "estimated_outcome"},
				}),
			),
		),
		s.handleOutcome,
	)

	// hyoka_regret: read back the regret assessment for a decision.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_regret",
			mcplib.WithDescription(`Show the counterfactual regret of a decision whose outcome was recorded.
Regret is 0 for the best option and 1 for the worst.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("decision_id",
				mcplib.Description("The decision to assess"),
				mcplib.Required(),
			),
		),
		s.handleRegret,
	)

	// hyoka_portfolio: aggregate decision quality over a timeframe.
	s.mcpServer.AddTool(
		mcplib.NewTool("hyoka_portfolio",
			mcplib.WithDescription(`Aggregate the latest scores of all decisions made within a timeframe.

WHAT YOU GET BACK:
- avg_dqs, stddev_dqs and grade_distribution
- best_category and worst_category by average score
- trend: average score per sub-period with a direction (improving, declining, stable)
- avg_chosen_regret over decisions with recorded outcomes`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("start",
				mcplib.Description("Start of the timeframe, inclusive (RFC 3339 or YYYY-MM-DD)"),
				mcplib.Required(),
			),
			mcplib.WithString("end",
				mcplib.Description("End of the timeframe, inclusive (RFC 3339 or YYYY-MM-DD)"),
				mcplib.Required(),
			),
			mcplib.WithString("category",
				mcplib.Description("Optional: only decisions in this category"),
			),
			mcplib.WithNumber("periods",
				mcplib.Description("Number of trend sub-periods. Defaults to the server's configuration."),
				mcplib.Min(1),
				mcplib.Max(portfolio.MaxPeriods),
			),
		),
		s.handlePortfolio,
	)
}

func (s *Server) handleScore(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	date, err := model.ParseTime("decision_date", request.GetString("decision_date", ""), false)
	if err != nil {
		return failure("score", err), nil
	}
	ratings, err := ratingsArg(request)
	if err != nil {
		return failure("score", err), nil
	}

	scored, err := s.svc.ScoreDecision(ctx, evaluation.ScoreInput{
		ScorecardInput: model.ScorecardInput{
			Decision:      request.GetString("decision", ""),
			DecisionDate:  date,
			DecisionMaker: request.GetString("decision_maker", ""),
			Category:      request.GetString("category", ""),
			Ratings:       ratings,
		},
		WeightProfile: request.GetString("weight_profile", ""),
	})
	if err != nil {
		return failure("score", err), nil
	}
	return jsonResult(scored), nil
}

func (s *Server) handleRerate(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuidArg(request, "decision_id")
	if err != nil {
		return failure("rerate", err), nil
	}
	ratings, err := ratingsArg(request)
	if err != nil {
		return failure("rerate", err), nil
	}
	scored, err := s.svc.RerateDecision(ctx, id, ratings, request.GetString("weight_profile", ""))
	if err != nil {
		return failure("rerate", err), nil
	}
	return jsonResult(scored), nil
}

func (s *Server) handlePredict(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	args := request.GetArguments()
	confidence, ok := args["confidence"].(float64)
	if !ok {
		return errorResult("confidence is required and must be a number"), nil
	}
	actual, ok := args["actual"].(bool)
	if !ok {
		return errorResult("actual is required and must be a boolean"), nil
	}

	in := evaluation.PredictionInput{
		Statement:       request.GetString("statement", ""),
		Confidence:      confidence,
		Actual:          actual,
		PredictionMaker: request.GetString("prediction_maker", ""),
	}
	if request.GetString("decision_id", "") != "" {
		id, err := uuidArg(request, "decision_id")
		if err != nil {
			return failure("predict", err), nil
		}
		in.DecisionID = &id
	}

	p, err := s.svc.RecordPrediction(ctx, in)
	if err != nil {
		return failure("predict", err), nil
	}
	return jsonResult(p), nil
}

func (s *Server) handleCalibration(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	f := model.PredictionFilter{
		PredictionMaker: strings.TrimSpace(request.GetString("prediction_maker", "")),
	}
	if request.GetString("decision_id", "") != "" {
		id, err := uuidArg(request, "decision_id")
		if err != nil {
			return failure("calibration", err), nil
		}
		f.DecisionID = &id
	}
	if raw := request.GetString("since", ""); raw != "" {
		t, err := model.ParseTime("since", raw, false)
		if err != nil {
			return failure("calibration", err), nil
		}
		f.Since = t
	}
	if raw := request.GetString("until", ""); raw != "" {
		t, err := model.ParseTime("until", raw, true)
		if err != nil {
			return failure("calibration", err), nil
		}
		f.Until = t
	}

	report, err := s.svc.Calibration(ctx, f)
	if err != nil {
		return failure("calibration", err), nil
	}
	return jsonResult(report), nil
}

func (s *Server) handleOutcome(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuidArg(request, "decision_id")
	if err != nil {
		return failure("outcome", err), nil
	}
	args := request.GetArguments()
	value, ok := args["outcome_value"].(float64)
	if !ok {
		return errorResult("outcome_value is required and must be a number"), nil
	}
	alts, err := alternativesArg(args["alternatives"])
	if err != nil {
		return failure("outcome", err), nil
	}

	a, err := s.svc.RecordOutcome(ctx, model.DecisionOutcome{
		DecisionID:   id,
		Chosen:       request.GetString("chosen", ""),
		OutcomeValue: value,
		Alternatives: alts,
	})
	if err != nil {
		return failure("outcome", err), nil
	}
	return jsonResult(a), nil
}

func (s *Server) handleRegret(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	id, err := uuidArg(request, "decision_id")
	if err != nil {
		return failure("regret", err), nil
	}
	a, err := s.svc.Regret(ctx, id)
	if err != nil {
		return failure("regret", err), nil
	}
	return jsonResult(a), nil
}

func (s *Server) handlePortfolio(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	start, err := model.ParseTime("start", request.GetString("start", ""), false)
	if err != nil {
		return failure("portfolio", err), nil
	}
	end, err := model.ParseTime("end", request.GetString("end", ""), true)
	if err != nil {
		return failure("portfolio", err), nil
	}

	p, err := s.svc.Portfolio(ctx, evaluation.PortfolioQuery{
		Timeframe: model.Timeframe{Start: start, End: end},
		Category:  request.GetString("category", ""),
		Periods:   request.GetInt("periods", 0),
	})
	if err != nil {
		return failure("portfolio", err), nil
	}
	return jsonResult(p), nil
}

func uuidArg(request mcplib.CallToolRequest, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(request.GetString(key, ""))
	if raw == "" {
		return uuid.Nil, model.Invalid(key, nil, "is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, model.Invalid(key, raw, "must be a UUID")
	}
	return id, nil
}

// ratingsArg converts the JSON object argument into Ratings. JSON numbers
// arrive as float64, so fractional values are rejected here rather than
// silently truncated.
func ratingsArg(request mcplib.CallToolRequest) (model.Ratings, error) {
	raw, ok := request.GetArguments()["ratings"].(map[string]any)
	if !ok {
		return model.Ratings{}, model.Invalid("ratings", nil, "must be an object of dimension ratings")
	}
	m := make(map[string]int, len(raw))
	for k, v := range raw {
		f, ok := v.(float64)
		if !ok || f != math.Trunc(f) {
			return model.Ratings{}, model.Invalid("ratings."+k, v, "must be an integer")
		}
		m[k] = int(f)
	}
	return model.ParseRatings(m)
}

func alternativesArg(v any) ([]model.AlternativeEstimate, error) {
	if v == nil {
		return nil, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, model.Invalid("alternatives", nil, "must be an array")
	}
	alts := make([]model.AlternativeEstimate, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, &model.ValidationError{Field: "alternatives", Index: i, Reason: "must be an object"}
		}
		name, _ := obj["name"].(string)
		est, ok := obj["estimated_outcome"].(float64)
		if !ok {
			return nil, &model.ValidationError{Field: "alternatives.estimated_outcome", Index: i,
				Reason: fmt.Sprintf("must be a number, got %T", obj["estimated_outcome"])}
		}
		alts = append(alts, model.AlternativeEstimate{Name: name, EstimatedOutcome: est})
	}
	return alts, nil
}
