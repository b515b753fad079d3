package model

import (
	"strings"
	"time"
)

// APIResponse is the standard response envelope for all HTTP API responses.
type APIResponse struct {
	Data any          `json:"data,omitempty"`
	Meta ResponseMeta `json:"meta"`
}

// APIError is the standard error response envelope.
type APIError struct {
	Error ErrorDetail  `json:"error"`
	Meta  ResponseMeta `json:"meta"`
}

// ResponseMeta contains request metadata included in every response.
type ResponseMeta struct {
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// FieldError is one offending field in an INVALID_INPUT response.
type FieldError struct {
	Field  string `json:"field"`
	Index  *int   `json:"index,omitempty"`
	Reason string `json:"reason"`
}

// Error codes.
const (
	ErrCodeInvalidInput     = "INVALID_INPUT"
	ErrCodeInsufficientData = "INSUFFICIENT_DATA"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeConflict         = "CONFLICT"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeRateLimited      = "RATE_LIMITED"
)

// FieldErrors converts the ValidationError leaves of err for an API response.
func FieldErrors(err error) []FieldError {
	leaves := ValidationErrors(err)
	out := make([]FieldError, len(leaves))
	for i, ve := range leaves {
		out[i] = FieldError{Field: ve.Field, Reason: ve.Reason}
		if ve.Index >= 0 {
			idx := ve.Index
			out[i].Index = &idx
		}
	}
	return out
}

// ScoreRequest is the request body for POST /v1/decisions.
type ScoreRequest struct {
	Decision      string         `json:"decision"`
	DecisionDate  string         `json:"decision_date"`
	DecisionMaker string         `json:"decision_maker"`
	Category      string         `json:"category,omitempty"`
	Ratings       map[string]int `json:"ratings"`
	WeightProfile string         `json:"weight_profile,omitempty"`
}

// RerateRequest is the request body for POST /v1/decisions/{id}/rerate.
type RerateRequest struct {
	Ratings       map[string]int `json:"ratings"`
	WeightProfile string         `json:"weight_profile,omitempty"`
}

// OutcomeRequest is the request body for POST /v1/decisions/{id}/outcome.
type OutcomeRequest struct {
	Chosen       string                `json:"chosen"`
	OutcomeValue *float64              `json:"outcome_value"`
	Alternatives []AlternativeEstimate `json:"alternatives"`
}

// PredictionRequest is the request body for POST /v1/predictions.
// Actual is a pointer so a missing value is distinguishable from false.
type PredictionRequest struct {
	Statement       string  `json:"statement"`
	Confidence      float64 `json:"confidence"`
	Actual          *bool   `json:"actual"`
	DecisionID      string  `json:"decision_id,omitempty"`
	PredictionMaker string  `json:"prediction_maker,omitempty"`
}

// WeightProfileRequest is the request body for PUT /v1/weights/{name}.
type WeightProfileRequest struct {
	Weights map[string]float64 `json:"weights"`
}

// HealthResponse is the response for GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Store    string `json:"store"`
	Database string `json:"database"` // "connected" or "disconnected"
	Uptime   int64  `json:"uptime_seconds"`
}

// ParseTime accepts an RFC 3339 timestamp or a bare YYYY-MM-DD date. A bare
// date means midnight UTC, or the last instant of that day when endOfDay is
// set so that inclusive upper bounds cover the whole day.
func ParseTime(field, raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		if endOfDay {
			return t.Add(24*time.Hour - time.Nanosecond), nil
		}
		return t, nil
	}
	if raw == "" {
		return time.Time{}, Invalid(field, nil, "is required")
	}
	return time.Time{}, Invalid(field, raw, "must be an RFC 3339 timestamp or YYYY-MM-DD date")
}
