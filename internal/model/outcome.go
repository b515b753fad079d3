package model

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AlternativeEstimate is an unchosen option with its externally estimated outcome.
type AlternativeEstimate struct {
	Name             string  `json:"name"`
	EstimatedOutcome float64 `json:"estimated_outcome"`
}

// DecisionOutcome pairs the realized outcome of a chosen option with estimates
// for the options that were not taken.
type DecisionOutcome struct {
	DecisionID   uuid.UUID             `json:"decision_id"`
	Chosen       string                `json:"chosen"`
	OutcomeValue float64               `json:"outcome_value"`
	Alternatives []AlternativeEstimate `json:"alternatives"`
	RecordedAt   time.Time             `json:"recorded_at"`
}

// Validate checks that the chosen option is named, all values are finite,
// alternative names are non-empty and unique, and the chosen option is not
// listed among the alternatives.
func (o DecisionOutcome) Validate() error {
	var errs []error
	chosen := strings.TrimSpace(o.Chosen)
	if chosen == "" {
		errs = append(errs, Invalid("chosen", nil, "must not be empty"))
	}
	if !finite(o.OutcomeValue) {
		errs = append(errs, Invalid("outcome_value", o.OutcomeValue, "must be finite"))
	}
	seen := make(map[string]int, len(o.Alternatives))
	for i, alt := range o.Alternatives {
		name := strings.TrimSpace(alt.Name)
		switch {
		case name == "":
			errs = append(errs, &ValidationError{Field: "alternatives.name", Index: i, Reason: "must not be empty"})
		case name == chosen:
			errs = append(errs, &ValidationError{Field: "alternatives.name", Index: i, Value: alt.Name,
				Reason: "chosen option must not appear among alternatives"})
		default:
			if first, dup := seen[name]; dup {
				errs = append(errs, &ValidationError{Field: "alternatives.name", Index: i, Value: alt.Name,
					Reason: fmt.Sprintf("duplicates alternatives[%d]", first)})
			} else {
				seen[name] = i
			}
		}
		if !finite(alt.EstimatedOutcome) {
			errs = append(errs, &ValidationError{Field: "alternatives.estimated_outcome", Index: i,
				Value: alt.EstimatedOutcome, Reason: "must be finite"})
		}
	}
	return errors.Join(errs...)
}

// Regret is the normalized gap between the best achievable outcome and one
// alternative's estimated outcome.
type Regret struct {
	Name             string  `json:"name"`
	EstimatedOutcome float64 `json:"estimated_outcome"`
	RegretScore      float64 `json:"regret_score"`
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
