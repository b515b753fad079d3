package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultCategory is assigned to scorecards created without a category.
const DefaultCategory = "general"

// MaxDecisionLen bounds the decision text.
const MaxDecisionLen = 4096

// Scorecard is one rated version of a decision. Scorecards are immutable:
// re-rating produces a new version that points at the one it supersedes.
type Scorecard struct {
	ID            uuid.UUID  `json:"id"`
	DecisionID    uuid.UUID  `json:"decision_id"` // stable across versions
	Version       int        `json:"version"`
	SupersedesID  *uuid.UUID `json:"supersedes_id,omitempty"`
	Decision      string     `json:"decision"`
	DecisionDate  time.Time  `json:"decision_date"`
	DecisionMaker string     `json:"decision_maker"`
	Category      string     `json:"category"`
	Ratings       Ratings    `json:"ratings"`
	CreatedAt     time.Time  `json:"created_at"`
}

// ScorecardInput is the caller-supplied part of a new scorecard.
type ScorecardInput struct {
	Decision      string    `json:"decision"`
	DecisionDate  time.Time `json:"decision_date"`
	DecisionMaker string    `json:"decision_maker"`
	Category      string    `json:"category,omitempty"`
	Ratings       Ratings   `json:"ratings"`
}

// NewScorecard validates input and returns version 1 of a new decision.
func NewScorecard(in ScorecardInput, now time.Time) (Scorecard, error) {
	var errs []error
	if strings.TrimSpace(in.Decision) == "" {
		errs = append(errs, Invalid("decision", nil, "must not be empty"))
	} else if len(in.Decision) > MaxDecisionLen {
		errs = append(errs, Invalid("decision", len(in.Decision), "exceeds maximum length"))
	}
	if strings.TrimSpace(in.DecisionMaker) == "" {
		errs = append(errs, Invalid("decision_maker", nil, "must not be empty"))
	}
	if in.DecisionDate.IsZero() {
		errs = append(errs, Invalid("decision_date", nil, "must be set"))
	} else if err := CheckYear("decision_date", in.DecisionDate); err != nil {
		errs = append(errs, err)
	}
	if err := in.Ratings.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Scorecard{}, errors.Join(errs...)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = DefaultCategory
	}
	id := uuid.New()
	return Scorecard{
		ID:            id,
		DecisionID:    id,
		Version:       1,
		Decision:      strings.TrimSpace(in.Decision),
		DecisionDate:  in.DecisionDate.UTC(),
		DecisionMaker: strings.TrimSpace(in.DecisionMaker),
		Category:      category,
		Ratings:       in.Ratings,
		CreatedAt:     now.UTC(),
	}, nil
}

// Rerate returns the next version of s carrying new ratings. s is unchanged.
func (s Scorecard) Rerate(ratings Ratings, now time.Time) (Scorecard, error) {
	if err := ratings.Validate(); err != nil {
		return Scorecard{}, err
	}
	prev := s.ID
	next := s
	next.ID = uuid.New()
	next.Version = s.Version + 1
	next.SupersedesID = &prev
	next.Ratings = ratings
	next.CreatedAt = now.UTC()
	return next, nil
}

// ScoreRecord is a persisted scorecard version with the DQS computed when it
// was written, along with the weights that produced it.
type ScoreRecord struct {
	Scorecard
	WeightProfile    string    `json:"weight_profile"`
	Weights          Weights   `json:"weights"`
	Score            float64   `json:"score"`
	Grade            string    `json:"grade"`
	WeakestDimension Dimension `json:"weakest_dimension"`
}
