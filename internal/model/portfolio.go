package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Timeframe is an inclusive [Start, End] window.
type Timeframe struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Supported calendar years for stored and queried dates.
const (
	MinYear = 1
	MaxYear = 9999
)

// CheckYear rejects times outside MinYear..MaxYear (UTC).
func CheckYear(field string, t time.Time) error {
	if y := t.UTC().Year(); y < MinYear || y > MaxYear {
		return Invalid(field, y, "year must be between 1 and 9999")
	}
	return nil
}

// Validate requires both bounds within CheckYear and Start <= End.
func (t Timeframe) Validate() error {
	if t.Start.IsZero() || t.End.IsZero() {
		return Invalid("timeframe", nil, "start and end are required")
	}
	if err := errors.Join(CheckYear("timeframe.start", t.Start), CheckYear("timeframe.end", t.End)); err != nil {
		return err
	}
	if t.End.Before(t.Start) {
		return Invalid("timeframe", t.End.Format(time.RFC3339), "end is before start")
	}
	return nil
}

// Contains reports whether ts falls within the inclusive window.
func (t Timeframe) Contains(ts time.Time) bool {
	return !ts.Before(t.Start) && !ts.After(t.End)
}

// TrendDirection summarizes the slope of a trend series.
type TrendDirection string

const (
	TrendImproving        TrendDirection = "improving"
	TrendDeclining        TrendDirection = "declining"
	TrendStable           TrendDirection = "stable"
	TrendInsufficientData TrendDirection = "insufficient_data"
)

// TrendPoint is the average DQS for one sub-period. AvgDQS is nil when the
// sub-period has no decisions.
type TrendPoint struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	Count  int       `json:"count"`
	AvgDQS *float64  `json:"avg_dqs"`
}

// CategoryStat is the per-category aggregate.
type CategoryStat struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	AvgDQS   float64 `json:"avg_dqs"`
}

// Portfolio is a read-only aggregate over scored decisions in a timeframe.
// Pointer fields are nil when there is no data to derive them from.
type Portfolio struct {
	Timeframe         Timeframe      `json:"timeframe"`
	Count             int            `json:"count"`
	AvgDQS            *float64       `json:"avg_dqs"`
	StdDevDQS         *float64       `json:"stddev_dqs"`
	BestCategory      *string        `json:"best_category"`
	WorstCategory     *string        `json:"worst_category"`
	Categories        []CategoryStat `json:"categories"`
	GradeDistribution map[string]int `json:"grade_distribution"`
	Trend             []TrendPoint   `json:"trend"`
	TrendDirection    TrendDirection `json:"trend_direction"`
	TrendSlope        *float64       `json:"trend_slope"`
	AvgChosenRegret   *float64       `json:"avg_chosen_regret"`
	DecisionIDs       []uuid.UUID    `json:"decision_ids,omitempty"`
}
