// Package dqs computes the Decision Quality Score: a weighted composite of the
// six process-quality dimensions on a 1-10 scale, with a grade band and the
// weakest dimension.
//
// Scoring:
//
//	score    = Σ weight[d] * rating[d]
//	weakest  = argmin weight[d] * rating[d]
//	           ties (within 1e-9): lower raw rating, then dimension order
//	           (framing, alternatives, information, values_tradeoffs, reasoning, commitment)
package dqs

import (
	"errors"
	"math"

	"github.com/ashita-ai/hyoka/internal/model"
)

// Result is the derived score for one scorecard. It is never stored on its own.
type Result struct {
	Score                 float64                            `json:"score"`
	Grade                 Grade                              `json:"grade"`
	WeakestDimension      model.Dimension                    `json:"weakest_dimension"`
	ImprovementSuggestion string                             `json:"improvement_suggestion"`
	Contributions         [model.NumDimensions]Contribution `json:"contributions"`
}

// Contribution is one dimension's share of the score.
type Contribution struct {
	Dimension model.Dimension `json:"dimension"`
	Rating    int             `json:"rating"`
	Weight    float64         `json:"weight"`
	Weighted  float64         `json:"weighted"`
}

// Calculator scores scorecards against a grade band policy.
// The zero value is not usable; construct with NewCalculator.
type Calculator struct {
	bands GradeBands
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithGradeBands replaces DefaultGradeBands. Bands are validated by NewCalculator.
func WithGradeBands(b GradeBands) Option {
	return func(c *Calculator) { c.bands = b }
}

// NewCalculator returns a Calculator using DefaultGradeBands unless overridden.
func NewCalculator(opts ...Option) (*Calculator, error) {
	c := &Calculator{bands: DefaultGradeBands()}
	for _, fn := range opts {
		fn(c)
	}
	if err := c.bands.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

var defaultCalculator = &Calculator{bands: DefaultGradeBands()}

// tieTolerance treats weighted contributions this close as equal, so products
// like 0.2*6 and 0.15*8 tie despite float rounding.
const tieTolerance = 1e-9

// Compute scores sc with weights using the default grade bands.
func Compute(sc model.Scorecard, weights model.Weights) (Result, error) {
	return defaultCalculator.Compute(sc, weights)
}

// Compute validates inputs, then scores. Nothing is computed on invalid input.
func (c *Calculator) Compute(sc model.Scorecard, weights model.Weights) (Result, error) {
	if err := errors.Join(sc.Ratings.Validate(), weights.Validate()); err != nil {
		return Result{}, err
	}

	var res Result
	weakest := model.DimFraming
	for _, d := range model.AllDimensions() {
		w := weights[d] * float64(sc.Ratings[d])
		res.Contributions[d] = Contribution{
			Dimension: d,
			Rating:    sc.Ratings[d],
			Weight:    weights[d],
			Weighted:  w,
		}
		res.Score += w

		// AllDimensions is in priority order, so strict comparisons keep the
		// earlier dimension on a full tie.
		cur := res.Contributions[weakest]
		tied := math.Abs(w-cur.Weighted) <= tieTolerance
		if (!tied && w < cur.Weighted) || (tied && sc.Ratings[d] < cur.Rating) {
			weakest = d
		}
	}

	res.Score = clamp(res.Score, model.MinRating, model.MaxRating)
	res.Grade = c.bands.Grade(res.Score)
	res.WeakestDimension = weakest
	res.ImprovementSuggestion = Suggestion(weakest)
	return res, nil
}

// clamp absorbs float rounding at the edges; weights within tolerance can push
// Σ w*r a hair outside [1, 10].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
