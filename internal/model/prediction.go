package model

import (
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Prediction is one probabilistic forecast with its realized binary outcome.
type Prediction struct {
	ID              uuid.UUID  `json:"id"`
	Statement       string     `json:"statement"`
	Confidence      float64    `json:"confidence"`
	Actual          bool       `json:"actual"`
	DecisionID      *uuid.UUID `json:"decision_id,omitempty"`
	PredictionMaker string     `json:"prediction_maker,omitempty"`
	RecordedAt      time.Time  `json:"recorded_at"`
}

// ValidateConfidence rejects confidences outside the open interval (0, 1).
// Exactly 0 or 1 has no defined calibration contribution.
func ValidateConfidence(c float64) error {
	if math.IsNaN(c) || c <= 0 || c >= 1 {
		return Invalid("confidence", c, "must be strictly between 0 and 1")
	}
	return nil
}

// Validate checks the statement and confidence of p.
func (p Prediction) Validate() error {
	if strings.TrimSpace(p.Statement) == "" {
		return Invalid("statement", nil, "must not be empty")
	}
	return ValidateConfidence(p.Confidence)
}

// Outcome returns the realized outcome as 1.0 or 0.0.
func (p Prediction) Outcome() float64 {
	if p.Actual {
		return 1
	}
	return 0
}

// PredictionFilter narrows a prediction listing. Zero fields do not filter.
type PredictionFilter struct {
	PredictionMaker string     `json:"prediction_maker,omitempty"`
	DecisionID      *uuid.UUID `json:"decision_id,omitempty"`
	Since           time.Time  `json:"since,omitempty"`
	Until           time.Time  `json:"until,omitempty"`
	Limit           int        `json:"limit,omitempty"`
}
