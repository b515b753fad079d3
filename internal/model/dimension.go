package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Dimension is one of the six fixed decision-quality dimensions. The declaration
// order is the priority order used for deterministic tie-breaking.
type Dimension int

const (
	DimFraming Dimension = iota
	DimAlternatives
	DimInformation
	DimValuesTradeoffs
	DimReasoning
	DimCommitment

	// NumDimensions sizes every per-dimension array.
	NumDimensions = 6
)

// Rating bounds (inclusive).
const (
	MinRating = 1
	MaxRating = 10
)

// WeightTolerance is the allowed deviation of a weight sum from 1.0.
const WeightTolerance = 1e-6

var dimensionNames = [NumDimensions]string{
	DimFraming:         "framing",
	DimAlternatives:    "alternatives",
	DimInformation:     "information",
	DimValuesTradeoffs: "values_tradeoffs",
	DimReasoning:       "reasoning",
	DimCommitment:      "commitment",
}

// AllDimensions returns the dimensions in priority order.
func AllDimensions() []Dimension {
	return []Dimension{DimFraming, DimAlternatives, DimInformation, DimValuesTradeoffs, DimReasoning, DimCommitment}
}

func (d Dimension) String() string {
	if d < 0 || int(d) >= NumDimensions {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Valid reports whether d is one of the six known dimensions.
func (d Dimension) Valid() bool { return d >= 0 && int(d) < NumDimensions }

// ParseDimension maps a dimension name to its Dimension.
func ParseDimension(s string) (Dimension, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range dimensionNames {
		if n == name {
			return Dimension(i), nil
		}
	}
	return 0, Invalid("dimension", s, "must be one of "+strings.Join(dimensionNames[:], ", "))
}

func (d Dimension) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("marshal %s: unknown dimension", d)
	}
	return []byte(d.String()), nil
}

func (d *Dimension) UnmarshalText(b []byte) error {
	parsed, err := ParseDimension(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Ratings holds one integer rating per dimension. A zero entry means unrated.
type Ratings [NumDimensions]int

// ParseRatings builds Ratings from a name-keyed map. Every dimension must be
// present exactly once and no unknown names are allowed.
func ParseRatings(m map[string]int) (Ratings, error) {
	var r Ratings
	var errs []error
	seen := [NumDimensions]bool{}
	for _, name := range sortedKeys(m) {
		d, err := ParseDimension(name)
		if err != nil {
			errs = append(errs, Invalid("ratings."+name, nil, "unknown dimension"))
			continue
		}
		r[d] = m[name]
		seen[d] = true
	}
	for _, d := range AllDimensions() {
		if !seen[d] {
			errs = append(errs, Invalid("ratings."+d.String(), nil, "missing rating"))
		}
	}
	if len(errs) > 0 {
		return Ratings{}, errors.Join(errs...)
	}
	return r, nil
}

// Validate checks that every dimension is rated within [MinRating, MaxRating].
// All offending dimensions are reported. Absent dimensions are caught by
// ParseRatings; here a zero is just another out-of-range value.
func (r Ratings) Validate() error {
	var errs []error
	for _, d := range AllDimensions() {
		if v := r[d]; v < MinRating || v > MaxRating {
			errs = append(errs, Invalid("ratings."+d.String(), v,
				fmt.Sprintf("must be between %d and %d", MinRating, MaxRating)))
		}
	}
	return errors.Join(errs...)
}

// Map returns the ratings keyed by dimension name.
func (r Ratings) Map() map[string]int {
	out := make(map[string]int, NumDimensions)
	for _, d := range AllDimensions() {
		out[d.String()] = r[d]
	}
	return out
}

// Mean is the unweighted mean of the six ratings.
func (r Ratings) Mean() float64 {
	sum := 0
	for _, v := range r {
		sum += v
	}
	return float64(sum) / NumDimensions
}

func (r Ratings) MarshalJSON() ([]byte, error) { return json.Marshal(r.Map()) }

func (r *Ratings) UnmarshalJSON(b []byte) error {
	var m map[string]int
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	parsed, err := ParseRatings(m)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Weights holds one non-negative weight per dimension; valid weights sum to 1.
type Weights [NumDimensions]float64

// DefaultWeights is the standard weight profile.
func DefaultWeights() Weights {
	return Weights{
		DimFraming:         0.20,
		DimAlternatives:    0.18,
		DimInformation:     0.18,
		DimValuesTradeoffs: 0.16,
		DimReasoning:       0.16,
		DimCommitment:      0.12,
	}
}

// UniformWeights weights every dimension equally.
func UniformWeights() Weights {
	var w Weights
	for i := range w {
		w[i] = 1.0 / NumDimensions
	}
	return w
}

// ParseWeights builds Weights from a name-keyed map with exactly the six
// dimension names, then validates the values.
func ParseWeights(m map[string]float64) (Weights, error) {
	var w Weights
	var errs []error
	seen := [NumDimensions]bool{}
	for _, name := range sortedKeys(m) {
		d, err := ParseDimension(name)
		if err != nil {
			errs = append(errs, Invalid("weights."+name, nil, "unknown dimension"))
			continue
		}
		w[d] = m[name]
		seen[d] = true
	}
	for _, d := range AllDimensions() {
		if !seen[d] {
			errs = append(errs, Invalid("weights."+d.String(), nil, "missing weight"))
		}
	}
	if len(errs) > 0 {
		return Weights{}, errors.Join(errs...)
	}
	if err := w.Validate(); err != nil {
		return Weights{}, err
	}
	return w, nil
}

// Sum returns the total of all weights.
func (w Weights) Sum() float64 {
	var s float64
	for _, v := range w {
		s += v
	}
	return s
}

// Validate checks that weights are finite, non-negative, and sum to 1.0 within
// WeightTolerance.
func (w Weights) Validate() error {
	var errs []error
	for _, d := range AllDimensions() {
		v := w[d]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, Invalid("weights."+d.String(), v, "must be finite"))
		} else if v < 0 {
			errs = append(errs, Invalid("weights."+d.String(), v, "must not be negative"))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return Invalid("weights", fmt.Sprintf("sum=%.6f", sum), "must sum to 1.0")
	}
	return nil
}

// Map returns the weights keyed by dimension name.
func (w Weights) Map() map[string]float64 {
	out := make(map[string]float64, NumDimensions)
	for _, d := range AllDimensions() {
		out[d.String()] = w[d]
	}
	return out
}

func (w Weights) MarshalJSON() ([]byte, error) { return json.Marshal(w.Map()) }

func (w *Weights) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	parsed, err := ParseWeights(m)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
