package hyoka

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Config holds the settings needed to construct a Client.
type Config struct {
	// BaseURL is the root URL of the Hyoka server (e.g. "http://localhost:8080").
	BaseURL string

	// HTTPClient is an optional custom HTTP client. If nil, a default client
	// with a 30-second timeout is used.
	HTTPClient *http.Client

	// Timeout applies to individual API requests. Defaults to 30 seconds.
	Timeout time.Duration

	// UserAgent is sent on every request. Defaults to "hyoka-go".
	UserAgent string
}

// Client is an HTTP client for the Hyoka decision-quality API.
// All methods are safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewClient creates a Client from the given configuration.
// Returns an error if BaseURL is empty or not an absolute URL.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("hyoka: BaseURL is required")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("hyoka: BaseURL %q is not an absolute URL", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "hyoka-go"
	}

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: userAgent,
		client:    httpClient,
	}, nil
}

// Score rates a new decision and returns its first scorecard version.
func (c *Client) Score(ctx context.Context, req ScoreRequest) (*ScoredDecision, error) {
	var resp ScoredDecision
	if err := c.send(ctx, http.MethodPost, "/v1/decisions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDecision returns the latest scorecard version of a decision.
func (c *Client) GetDecision(ctx context.Context, decisionID uuid.UUID) (*ScoredDecision, error) {
	var resp ScoredDecision
	if err := c.get(ctx, "/v1/decisions/"+decisionID.String(), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DecisionHistory returns every scorecard version of a decision, oldest first.
func (c *Client) DecisionHistory(ctx context.Context, decisionID uuid.UUID) ([]ScoredDecision, error) {
	var resp []ScoredDecision
	if err := c.get(ctx, "/v1/decisions/"+decisionID.String()+"/history", &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Rerate appends a new scorecard version. An empty profile uses the
// server's configured profile.
func (c *Client) Rerate(ctx context.Context, decisionID uuid.UUID, ratings Ratings, profile string) (*ScoredDecision, error) {
	body := map[string]any{"ratings": ratings}
	if profile != "" {
		body["weight_profile"] = profile
	}
	var resp ScoredDecision
	if err := c.send(ctx, http.MethodPost, "/v1/decisions/"+decisionID.String()+"/rerate", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordOutcome stores the outcome of a decision and returns its regret
// assessment. Recording again replaces the earlier outcome.
func (c *Client) RecordOutcome(ctx context.Context, decisionID uuid.UUID, req OutcomeRequest) (*Assessment, error) {
	var resp Assessment
	if err := c.send(ctx, http.MethodPost, "/v1/decisions/"+decisionID.String()+"/outcome", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Regret returns the regret assessment of a decision's recorded outcome.
func (c *Client) Regret(ctx context.Context, decisionID uuid.UUID) (*Assessment, error) {
	var resp Assessment
	if err := c.get(ctx, "/v1/decisions/"+decisionID.String()+"/regret", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// RecordPrediction stores a resolved prediction.
func (c *Client) RecordPrediction(ctx context.Context, req PredictionRequest) (*Prediction, error) {
	var resp Prediction
	if err := c.send(ctx, http.MethodPost, "/v1/predictions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Calibration returns a calibration report over the matching predictions.
// Nil opts cover every prediction.
func (c *Client) Calibration(ctx context.Context, opts *CalibrationOptions) (*CalibrationReport, error) {
	params := url.Values{}
	if opts != nil {
		if opts.PredictionMaker != "" {
			params.Set("prediction_maker", opts.PredictionMaker)
		}
		if opts.DecisionID != nil {
			params.Set("decision_id", opts.DecisionID.String())
		}
		if !opts.Since.IsZero() {
			params.Set("since", opts.Since.UTC().Format(time.RFC3339Nano))
		}
		if !opts.Until.IsZero() {
			params.Set("until", opts.Until.UTC().Format(time.RFC3339Nano))
		}
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
	}
	var resp CalibrationReport
	if err := c.get(ctx, withQuery("/v1/calibration", params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Portfolio aggregates decision quality over opts' timeframe.
func (c *Client) Portfolio(ctx context.Context, opts PortfolioOptions) (*Portfolio, error) {
	if opts.Start.IsZero() || opts.End.IsZero() {
		return nil, fmt.Errorf("hyoka: portfolio start and end are required")
	}
	params := url.Values{}
	params.Set("start", opts.Start.UTC().Format(time.RFC3339Nano))
	params.Set("end", opts.End.UTC().Format(time.RFC3339Nano))
	if opts.Category != "" {
		params.Set("category", opts.Category)
	}
	if opts.Periods > 0 {
		params.Set("periods", strconv.Itoa(opts.Periods))
	}
	var resp Portfolio
	if err := c.get(ctx, withQuery("/v1/portfolio", params), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetWeights returns a named weight profile. "default" is always available.
func (c *Client) GetWeights(ctx context.Context, name string) (*WeightProfile, error) {
	var resp WeightProfile
	if err := c.get(ctx, "/v1/weights/"+url.PathEscape(name), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SaveWeights creates or replaces a named weight profile.
func (c *Client) SaveWeights(ctx context.Context, name string, weights Weights) (*WeightProfile, error) {
	body := map[string]any{"weights": weights}
	var resp WeightProfile
	if err := c.send(ctx, http.MethodPut, "/v1/weights/"+url.PathEscape(name), body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the server's health endpoint.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.get(ctx, "/health", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func withQuery(path string, params url.Values) string {
	if len(params) == 0 {
		return path
	}
	return path + "?" + params.Encode()
}

// ---------------------------------------------------------------------------
// HTTP helpers
// ---------------------------------------------------------------------------

type apiEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

func (c *Client) send(ctx context.Context, method, path string, body any, dest any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("hyoka: marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("hyoka: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.doRequest(req, dest)
}

func (c *Client) get(ctx context.Context, path string, dest any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("hyoka: create request: %w", err)
	}

	return c.doRequest(req, dest)
}

func (c *Client) doRequest(req *http.Request, dest any) error {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("hyoka: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(resp, dest)
}

func handleResponse(resp *http.Response, dest any) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hyoka: read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		return parseErrorResponse(resp.StatusCode, bodyBytes)
	}

	if resp.StatusCode == http.StatusNoContent || dest == nil {
		return nil
	}

	// Unwrap the server's { "data": ... } envelope.
	var envelope apiEnvelope
	if err := json.Unmarshal(bodyBytes, &envelope); err != nil {
		return fmt.Errorf("hyoka: decode response envelope: %w", err)
	}
	if envelope.Data == nil {
		return fmt.Errorf("hyoka: response has no data")
	}
	if err := json.Unmarshal(envelope.Data, dest); err != nil {
		return fmt.Errorf("hyoka: decode response data: %w", err)
	}
	return nil
}

func parseErrorResponse(statusCode int, body []byte) *Error {
	apiErr := &Error{StatusCode: statusCode}

	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
		if len(envelope.Error.Details) > 0 {
			// Details are a field list only for INVALID_INPUT.
			_ = json.Unmarshal(envelope.Error.Details, &apiErr.Fields)
		}
	} else {
		apiErr.Code = http.StatusText(statusCode)
		apiErr.Message = string(body)
	}

	return apiErr
}
