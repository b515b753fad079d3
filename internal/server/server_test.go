package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	mcpclient "github.com/mark3labs/mcp-go/client"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hyoka/api"
	"github.com/ashita-ai/hyoka/internal/mcp"
	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/ratelimit"
	"github.com/ashita-ai/hyoka/internal/server"
	"github.com/ashita-ai/hyoka/internal/service/evaluation"
	"github.com/ashita-ai/hyoka/internal/testutil"
)

type downStore struct{}

func (downStore) Ping(context.Context) error { return errors.New("connection refused") }

type testOptions struct {
	limiter ratelimit.Limiter
	pinger  server.Pinger
}

func newTestServer(t *testing.T, opts testOptions) *httptest.Server {
	t.Helper()
	logger := testutil.TestLogger()
	store := testutil.NewLiteStore(t)
	svc, err := evaluation.New(store, evaluation.Config{}, logger)
	require.NoError(t, err)

	var pinger server.Pinger = store
	if opts.pinger != nil {
		pinger = opts.pinger
	}
	srv := server.New(server.ServerConfig{
		Evaluation:          svc,
		Store:               pinger,
		StoreName:           "sqlite",
		Logger:              logger,
		Limiter:             opts.limiter,
		MCPServer:           mcp.New(svc, logger, "test").MCPServer(),
		ReadTimeout:         5 * time.Second,
		WriteTimeout:        5 * time.Second,
		Version:             "test",
		MaxRequestBodyBytes: 64 * 1024,
		OpenAPISpec:         api.OpenAPISpec,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Data  json.RawMessage    `json:"data"`
	Error model.ErrorDetail  `json:"error"`
	Meta  model.ResponseMeta `json:"meta"`
}

func do(t *testing.T, method, url string, body any) (*http.Response, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(data)
		}
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	return resp, env
}

func ratings(framing, alternatives, information, tradeoffs, reasoning, commitment int) map[string]int {
	return map[string]int{
		"framing":          framing,
		"alternatives":     alternatives,
		"information":      information,
		"values_tradeoffs": tradeoffs,
		"reasoning":        reasoning,
		"commitment":       commitment,
	}
}

func scoreRequest(date, category string) model.ScoreRequest {
	return model.ScoreRequest{
		Decision:      "replace the message broker",
		DecisionDate:  date,
		DecisionMaker: "platform-team",
		Category:      category,
		Ratings:       ratings(8, 7, 6, 8, 7, 9),
	}
}

type scored struct {
	Scorecard model.Scorecard `json:"scorecard"`
	DQS       struct {
		Score            float64 `json:"score"`
		Grade            string  `json:"grade"`
		WeakestDimension string  `json:"weakest_dimension"`
	} `json:"dqs"`
}

func createDecision(t *testing.T, ts *httptest.Server, date, category string) scored {
	t.Helper()
	resp, env := do(t, http.MethodPost, ts.URL+"/v1/decisions", scoreRequest(date, category))
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %+v", env.Error)
	var s scored
	require.NoError(t, json.Unmarshal(env.Data, &s))
	return s
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	resp, env := do(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var health model.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "sqlite", health.Store)
	assert.Equal(t, "connected", health.Database)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}

func TestHealthUnhealthy(t *testing.T) {
	ts := newTestServer(t, testOptions{pinger: downStore{}})
	resp, env := do(t, http.MethodGet, ts.URL+"/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	var health model.HealthResponse
	require.NoError(t, json.Unmarshal(env.Data, &health))
	assert.Equal(t, "unhealthy", health.Status)
	assert.Equal(t, "disconnected", health.Database)
}

func TestOpenAPISpec(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	resp, err := http.Get(ts.URL + "/openapi.yaml")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/yaml", resp.Header.Get("Content-Type"))
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/v1/decisions/{id}/regret")
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "caller-supplied")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	assert.Equal(t, "caller-supplied", resp.Header.Get("X-Request-ID"))
	assert.Equal(t, "caller-supplied", env.Meta.RequestID)
}

func TestScoreAndGetDecision(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	created := createDecision(t, ts, "2026-03-01", "infra")

	assert.InDelta(t, 7.42, created.DQS.Score, 1e-9)
	assert.Equal(t, "Good", created.DQS.Grade)
	assert.Equal(t, "information", created.DQS.WeakestDimension)
	assert.Equal(t, 1, created.Scorecard.Version)

	resp, env := do(t, http.MethodGet, ts.URL+"/v1/decisions/"+created.Scorecard.DecisionID.String(), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got scored
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, created.Scorecard.ID, got.Scorecard.ID)
	assert.InDelta(t, created.DQS.Score, got.DQS.Score, 1e-9)
}

func TestScoreDecisionValidation(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	bad := scoreRequest("2026-03-01", "infra")
	bad.Ratings = ratings(0, 11, 5, 5, 5, 5)
	resp, env := do(t, http.MethodPost, ts.URL+"/v1/decisions", bad)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)

	details, ok := env.Error.Details.([]any)
	require.True(t, ok, "details should list field errors: %#v", env.Error.Details)
	assert.Len(t, details, 2)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"malformed json", `{"decision":`, http.StatusBadRequest},
		{"unknown field", `{"decision":"d","mood":"good"}`, http.StatusBadRequest},
		{"fractional rating", `{"decision":"d","decision_maker":"m","decision_date":"2026-03-01","ratings":{"framing":7.5}}`, http.StatusBadRequest},
		{"bad date", model.ScoreRequest{Decision: "d", DecisionMaker: "m", DecisionDate: "soon", Ratings: ratings(5, 5, 5, 5, 5, 5)}, http.StatusBadRequest},
		{"unknown profile", model.ScoreRequest{Decision: "d", DecisionMaker: "m", DecisionDate: "2026-03-01", Ratings: ratings(5, 5, 5, 5, 5, 5), WeightProfile: "nope"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := do(t, http.MethodPost, ts.URL+"/v1/decisions", tt.body)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequestBodyTooLarge(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	big := scoreRequest("2026-03-01", "infra")
	big.Decision = string(bytes.Repeat([]byte("x"), 128*1024))
	resp, env := do(t, http.MethodPost, ts.URL+"/v1/decisions", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
}

func TestGetDecisionErrors(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	resp, env := do(t, http.MethodGet, ts.URL+"/v1/decisions/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)

	resp, env = do(t, http.MethodGet, ts.URL+"/v1/decisions/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)
}

func TestRerateAndHistory(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	created := createDecision(t, ts, "2026-03-01", "infra")
	base := ts.URL + "/v1/decisions/" + created.Scorecard.DecisionID.String()

	resp, env := do(t, http.MethodPost, base+"/rerate", model.RerateRequest{Ratings: ratings(9, 9, 9, 9, 9, 9)})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %+v", env.Error)
	var rerated scored
	require.NoError(t, json.Unmarshal(env.Data, &rerated))
	assert.Equal(t, 2, rerated.Scorecard.Version)
	assert.Equal(t, "Excellent", rerated.DQS.Grade)
	require.NotNil(t, rerated.Scorecard.SupersedesID)
	assert.Equal(t, created.Scorecard.ID, *rerated.Scorecard.SupersedesID)

	resp, env = do(t, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history []scored
	require.NoError(t, json.Unmarshal(env.Data, &history))
	require.Len(t, history, 2)
	assert.InDelta(t, 7.42, history[0].DQS.Score, 1e-9)
	assert.InDelta(t, 9.0, history[1].DQS.Score, 1e-9)

	resp, _ = do(t, http.MethodPost, base+"/rerate", model.RerateRequest{Ratings: ratings(9, 9, 9, 9, 9, 12)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOutcomeAndRegret(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	created := createDecision(t, ts, "2026-03-01", "infra")
	base := ts.URL + "/v1/decisions/" + created.Scorecard.DecisionID.String()

	resp, env := do(t, http.MethodGet, base+"/regret", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no outcome recorded yet")
	assert.Equal(t, model.ErrCodeNotFound, env.Error.Code)

	value := 6.0
	resp, env = do(t, http.MethodPost, base+"/outcome", model.OutcomeRequest{
		Chosen:       "kafka",
		OutcomeValue: &value,
		Alternatives: []model.AlternativeEstimate{
			{Name: "nats", EstimatedOutcome: 8},
			{Name: "rabbitmq", EstimatedOutcome: 4},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %+v", env.Error)

	resp, env = do(t, http.MethodGet, base+"/regret", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var a struct {
		ChosenRegret float64        `json:"chosen_regret"`
		BestOption   string         `json:"best_option"`
		Alternatives []model.Regret `json:"alternatives"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &a))
	assert.InDelta(t, 0.5, a.ChosenRegret, 1e-9)
	assert.Equal(t, "nats", a.BestOption)
	require.Len(t, a.Alternatives, 2)
	assert.InDelta(t, 1.0, a.Alternatives[1].RegretScore, 1e-9)

	resp, env = do(t, http.MethodPost, base+"/outcome", model.OutcomeRequest{Chosen: "kafka"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, env.Error.Message, "outcome_value")

	resp, _ = do(t, http.MethodPost, ts.URL+"/v1/decisions/"+uuid.NewString()+"/outcome",
		model.OutcomeRequest{Chosen: "kafka", OutcomeValue: &value})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPredictionsAndCalibration(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	resp, env := do(t, http.MethodGet, ts.URL+"/v1/calibration", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, model.ErrCodeInsufficientData, env.Error.Code)

	yes, no := true, false
	for _, p := range []model.PredictionRequest{
		{Statement: "launch slips", Confidence: 0.9, Actual: &yes, PredictionMaker: "ana"},
		{Statement: "churn drops", Confidence: 0.9, Actual: &no, PredictionMaker: "ana"},
		{Statement: "hire closes", Confidence: 0.3, Actual: &no, PredictionMaker: "ana"},
		{Statement: "other forecaster", Confidence: 0.5, Actual: &yes, PredictionMaker: "ben"},
	} {
		resp, env := do(t, http.MethodPost, ts.URL+"/v1/predictions", p)
		require.Equal(t, http.StatusCreated, resp.StatusCode, "error: %+v", env.Error)
	}

	resp, env = do(t, http.MethodGet, ts.URL+"/v1/calibration?prediction_maker=ana", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %+v", env.Error)
	var report struct {
		Count      int     `json:"count"`
		BrierScore float64 `json:"brier_score"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &report))
	assert.Equal(t, 3, report.Count)
	assert.InDelta(t, 0.91/3, report.BrierScore, 1e-9)

	invalid := []struct {
		name string
		body model.PredictionRequest
	}{
		{"missing actual", model.PredictionRequest{Statement: "s", Confidence: 0.5}},
		{"confidence of one", model.PredictionRequest{Statement: "s", Confidence: 1, Actual: &yes}},
		{"bad decision id", model.PredictionRequest{Statement: "s", Confidence: 0.5, Actual: &yes, DecisionID: "x"}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			resp, env := do(t, http.MethodPost, ts.URL+"/v1/predictions", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
		})
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/calibration?since=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/calibration?limit=-3", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPortfolio(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	createDecision(t, ts, "2026-01-10", "infra")
	createDecision(t, ts, "2026-02-20", "hiring")
	createDecision(t, ts, "2026-06-01", "infra")

	resp, env := do(t, http.MethodGet, ts.URL+"/v1/portfolio?start=2026-01-01&end=2026-03-31&periods=3", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %+v", env.Error)
	var p model.Portfolio
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 2, p.Count)
	assert.Len(t, p.Trend, 3)
	require.NotNil(t, p.AvgDQS)
	assert.InDelta(t, 7.42, *p.AvgDQS, 1e-9)
	assert.Nil(t, p.AvgChosenRegret)

	resp, env = do(t, http.MethodGet, ts.URL+"/v1/portfolio?start=2030-01-01&end=2030-12-31", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, 0, p.Count)
	assert.Nil(t, p.AvgDQS)
	assert.Equal(t, model.TrendInsufficientData, p.TrendDirection)

	for _, query := range []string{
		"",
		"?start=2026-03-01&end=2026-01-01",
		"?start=2026-01-01&end=2026-03-31&periods=0",
	} {
		resp, _ := do(t, http.MethodGet, ts.URL+"/v1/portfolio"+query, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "query %q", query)
	}
}

func TestWeightProfiles(t *testing.T) {
	ts := newTestServer(t, testOptions{})

	resp, _ := do(t, http.MethodGet, ts.URL+"/v1/weights/default", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	uniform := map[string]float64{}
	for _, d := range model.AllDimensions() {
		uniform[d.String()] = 1.0 / 6
	}
	resp, env := do(t, http.MethodPut, ts.URL+"/v1/weights/uniform", model.WeightProfileRequest{Weights: uniform})
	require.Equal(t, http.StatusOK, resp.StatusCode, "error: %+v", env.Error)

	req := scoreRequest("2026-03-01", "infra")
	req.WeightProfile = "uniform"
	resp, env = do(t, http.MethodPost, ts.URL+"/v1/decisions", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var s scored
	require.NoError(t, json.Unmarshal(env.Data, &s))
	assert.InDelta(t, 45.0/6, s.DQS.Score, 1e-9, "uniform weights give the mean rating")

	resp, _ = do(t, http.MethodPut, ts.URL+"/v1/weights/default", model.WeightProfileRequest{Weights: uniform})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "default profile is reserved")

	uniform["framing"] = 0.9
	resp, _ = do(t, http.MethodPut, ts.URL+"/v1/weights/skewed", model.WeightProfileRequest{Weights: uniform})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "weights must sum to 1")

	resp, _ = do(t, http.MethodGet, ts.URL+"/v1/weights/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(0.001, 2)
	t.Cleanup(func() { _ = limiter.Close() })
	ts := newTestServer(t, testOptions{limiter: limiter})

	for range 2 {
		resp, _ := do(t, http.MethodGet, ts.URL+"/v1/weights/default", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, env := do(t, http.MethodGet, ts.URL+"/v1/weights/default", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, model.ErrCodeRateLimited, env.Error.Code)
	assert.NotEmpty(t, env.Meta.RequestID)

	resp, _ = do(t, http.MethodGet, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "health is not rate limited")
}

func TestMCPOverHTTP(t *testing.T) {
	ts := newTestServer(t, testOptions{})
	ctx := context.Background()

	c, err := mcpclient.NewStreamableHttpClient(ts.URL + "/mcp")
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	initResult, err := c.Initialize(ctx, mcplib.InitializeRequest{
		Params: mcplib.InitializeParams{
			ClientInfo: mcplib.Implementation{Name: "test-client", Version: "1.0"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "hyoka", initResult.ServerInfo.Name)

	tools, err := c.ListTools(ctx, mcplib.ListToolsRequest{})
	require.NoError(t, err)
	assert.Len(t, tools.Tools, 7)

	result, err := c.CallTool(ctx, mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name: "hyoka_score",
			Arguments: map[string]any{
				"decision":       "adopt a service mesh",
				"decision_maker": "platform-team",
				"decision_date":  "2026-03-01",
				"ratings": map[string]any{
					"framing": 8, "alternatives": 7, "information": 6,
					"values_tradeoffs": 8, "reasoning": 7, "commitment": 9,
				},
			},
		},
	})
	require.NoError(t, err)
	require.False(t, result.IsError)
	text, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok)
	var s scored
	require.NoError(t, json.Unmarshal([]byte(text.Text), &s))
	assert.InDelta(t, 7.42, s.DQS.Score, 1e-9)

	// The decision scored over MCP is visible over HTTP.
	resp, _ := do(t, http.MethodGet, ts.URL+"/v1/decisions/"+s.Scorecard.DecisionID.String(), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
