package dqs

import (
	"fmt"
	"math"
	"strings"

	"github.com/ashita-ai/hyoka/internal/model"
)

// Grade is an ordinal quality band.
type Grade string

const (
	GradeExcellent Grade = "Excellent"
	GradeGood      Grade = "Good"
	GradeFair      Grade = "Fair"
	GradePoor      Grade = "Poor"
)

// GradeBand assigns Grade to scores >= Min.
type GradeBand struct {
	Min   float64 `json:"min"`
	Grade Grade   `json:"grade"`
}

// GradeBands is an ordered band policy, highest threshold first. The last band
// must cover the minimum possible score so every score gets a grade.
type GradeBands []GradeBand

// DefaultGradeBands: >=8.5 Excellent, >=7.0 Good, >=5.0 Fair, else Poor.
func DefaultGradeBands() GradeBands {
	return GradeBands{
		{Min: 8.5, Grade: GradeExcellent},
		{Min: 7.0, Grade: GradeGood},
		{Min: 5.0, Grade: GradeFair},
		{Min: 0, Grade: GradePoor},
	}
}

// Validate checks the bands are non-empty, strictly descending, uniquely
// named, and total over [MinRating, MaxRating].
func (b GradeBands) Validate() error {
	if len(b) == 0 {
		return model.Invalid("grade_bands", nil, "at least one band is required")
	}
	seen := make(map[Grade]bool, len(b))
	for i, band := range b {
		if strings.TrimSpace(string(band.Grade)) == "" {
			return &model.ValidationError{Field: "grade_bands.grade", Index: i, Reason: "must not be empty"}
		}
		if seen[band.Grade] {
			return &model.ValidationError{Field: "grade_bands.grade", Index: i, Value: band.Grade, Reason: "duplicate grade"}
		}
		seen[band.Grade] = true
		if math.IsNaN(band.Min) {
			return &model.ValidationError{Field: "grade_bands.min", Index: i, Reason: "must be a number"}
		}
		if i > 0 && band.Min >= b[i-1].Min {
			return &model.ValidationError{Field: "grade_bands.min", Index: i, Value: band.Min,
				Reason: fmt.Sprintf("must be below the previous threshold %v", b[i-1].Min)}
		}
	}
	if last := b[len(b)-1]; last.Min > model.MinRating {
		return &model.ValidationError{Field: "grade_bands.min", Index: len(b) - 1, Value: last.Min,
			Reason: fmt.Sprintf("last band must cover scores down to %d", model.MinRating)}
	}
	return nil
}

// Grade returns the first band whose threshold score meets.
func (b GradeBands) Grade(score float64) Grade {
	for _, band := range b {
		if score >= band.Min {
			return band.Grade
		}
	}
	return b[len(b)-1].Grade
}

// Rank orders grades in b from 0 (lowest) upward; unknown grades rank -1.
func (b GradeBands) Rank(g Grade) int {
	for i, band := range b {
		if band.Grade == g {
			return len(b) - 1 - i
		}
	}
	return -1
}
