package hyoka

import (
	"time"

	"github.com/google/uuid"
)

// Ratings are the six 1-10 dimension ratings of a decision, keyed by
// dimension name: framing, alternatives, information, values_tradeoffs,
// reasoning, commitment.
type Ratings map[string]int

// Weights are per-dimension weights summing to 1.0.
type Weights map[string]float64

// ScoreRequest is the body of Score.
type ScoreRequest struct {
	Decision      string  `json:"decision"`
	DecisionDate  string  `json:"decision_date"` // RFC 3339 or YYYY-MM-DD
	DecisionMaker string  `json:"decision_maker"`
	Category      string  `json:"category,omitempty"`
	Ratings       Ratings `json:"ratings"`
	WeightProfile string  `json:"weight_profile,omitempty"`
}

// Scorecard is one version of a decision's ratings.
type Scorecard struct {
	ID            uuid.UUID  `json:"id"`
	DecisionID    uuid.UUID  `json:"decision_id"`
	Version       int        `json:"version"`
	SupersedesID  *uuid.UUID `json:"supersedes_id,omitempty"`
	Decision      string     `json:"decision"`
	DecisionDate  time.Time  `json:"decision_date"`
	DecisionMaker string     `json:"decision_maker"`
	Category      string     `json:"category"`
	Ratings       Ratings    `json:"ratings"`
	CreatedAt     time.Time  `json:"created_at"`
}

// DQS is a decision quality score.
type DQS struct {
	Score            float64 `json:"score"`
	Grade            string  `json:"grade"`
	WeakestDimension string  `json:"weakest_dimension"`
}

// ScoredDecision is a scorecard with the score computed from it.
type ScoredDecision struct {
	Scorecard     Scorecard `json:"scorecard"`
	WeightProfile string    `json:"weight_profile"`
	Weights       Weights   `json:"weights"`
	DQS           DQS       `json:"dqs"`
}

// Alternative is an option that was not chosen, with its estimated outcome.
type Alternative struct {
	Name             string  `json:"name"`
	EstimatedOutcome float64 `json:"estimated_outcome"`
}

// OutcomeRequest is the body of RecordOutcome.
type OutcomeRequest struct {
	Chosen       string        `json:"chosen"`
	OutcomeValue float64       `json:"outcome_value"`
	Alternatives []Alternative `json:"alternatives,omitempty"`
}

// Regret is the normalized regret of one alternative.
type Regret struct {
	Name             string  `json:"name"`
	EstimatedOutcome float64 `json:"estimated_outcome"`
	RegretScore      float64 `json:"regret_score"`
}

// Assessment is the regret analysis of a decision's outcome.
type Assessment struct {
	Chosen       string   `json:"chosen"`
	OutcomeValue float64  `json:"outcome_value"`
	ChosenRegret float64  `json:"chosen_regret"`
	BestOption   string   `json:"best_option"`
	BestOutcome  float64  `json:"best_outcome"`
	Optimal      bool     `json:"optimal"`
	Alternatives []Regret `json:"alternatives"`
}

// PredictionRequest is the body of RecordPrediction.
type PredictionRequest struct {
	Statement       string     `json:"statement"`
	Confidence      float64    `json:"confidence"`
	Actual          bool       `json:"actual"`
	DecisionID      *uuid.UUID `json:"decision_id,omitempty"`
	PredictionMaker string     `json:"prediction_maker,omitempty"`
}

// Prediction is a stored prediction.
type Prediction struct {
	ID              uuid.UUID  `json:"id"`
	Statement       string     `json:"statement"`
	Confidence      float64    `json:"confidence"`
	Actual          bool       `json:"actual"`
	DecisionID      *uuid.UUID `json:"decision_id,omitempty"`
	PredictionMaker string     `json:"prediction_maker,omitempty"`
	RecordedAt      time.Time  `json:"recorded_at"`
}

// CalibrationOptions filter the predictions a calibration report covers.
type CalibrationOptions struct {
	PredictionMaker string
	DecisionID      *uuid.UUID
	Since           time.Time
	Until           time.Time
	Limit           int
}

// CalibrationBucket is one confidence bucket of a calibration report.
type CalibrationBucket struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	PredictedMean float64 `json:"predicted_mean"`
	ObservedRate  float64 `json:"observed_rate"`
}

// CalibrationReport summarizes how well confidences matched outcomes.
type CalibrationReport struct {
	Count          int                 `json:"count"`
	Score          float64             `json:"score"`
	Overconfidence float64             `json:"overconfidence"`
	BrierScore     float64             `json:"brier_score"`
	BaseRate       float64             `json:"base_rate"`
	Reliability    float64             `json:"reliability"`
	Resolution     float64             `json:"resolution"`
	Uncertainty    float64             `json:"uncertainty"`
	Buckets        []CalibrationBucket `json:"buckets"`
}

// PortfolioOptions select the decisions a portfolio covers. Start and End
// are required.
type PortfolioOptions struct {
	Start    time.Time
	End      time.Time
	Category string
	Periods  int
}

// TrendPoint is the average DQS of one sub-period.
type TrendPoint struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Count  int       `json:"count"`
	AvgDQS *float64  `json:"avg_dqs"`
}

// CategoryStat aggregates one decision category.
type CategoryStat struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	AvgDQS   float64 `json:"avg_dqs"`
}

// Portfolio is the aggregate decision quality over a timeframe.
type Portfolio struct {
	Count             int            `json:"count"`
	AvgDQS            *float64       `json:"avg_dqs"`
	StdDevDQS         *float64       `json:"stddev_dqs"`
	BestCategory      *string        `json:"best_category"`
	WorstCategory     *string        `json:"worst_category"`
	Categories        []CategoryStat `json:"categories"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	Trend             []TrendPoint   `json:"trend"`
	TrendDirection    string         `json:"trend_direction"`
	TrendSlope        *float64       `json:"trend_slope"`
	AvgChosenRegret   *float64       `json:"avg_chosen_regret"`
	DecisionIDs       []uuid.UUID    `json:"decision_ids,omitempty"`
}

// WeightProfile is a named set of weights.
type WeightProfile struct {
	Name    string  `json:"name"`
	Weights Weights `json:"weights"`
}

// HealthResponse is returned by Health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Store    string `json:"store"`
	Database string `json:"database"`
	Uptime   int64  `json:"uptime_seconds"`
}
