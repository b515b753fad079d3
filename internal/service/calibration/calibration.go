// Package calibration tracks probabilistic predictions and measures how well
// stated confidence matches observed outcome frequency.
//
// A Tracker is an append-only log. RecordPrediction may be called from many
// goroutines; Analyze computes over a point-in-time snapshot and never
// mutates the log.
package calibration

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
)

// DefaultBuckets is the number of equal-width confidence buckets (deciles).
const DefaultBuckets = 10

// MaxBuckets bounds the bucket count.
const MaxBuckets = 1000

// Bucket is the breakdown for one non-empty confidence interval [Lower, Upper).
// The last bucket also includes Upper.
type Bucket struct {
	Lower         float64 `json:"lower"`
	Upper         float64 `json:"upper"`
	Count         int     `json:"count"`
	PredictedMean float64 `json:"predicted_mean"`
	ObservedRate  float64 `json:"observed_rate"`
}

// Gap is predicted_mean minus observed_rate; positive means overconfident.
func (b Bucket) Gap() float64 { return b.PredictedMean - b.ObservedRate }

// Report is the calibration snapshot over all recorded predictions.
type Report struct {
	Count          int      `json:"count"`
	Score          float64  `json:"score"`
	Overconfidence float64  `json:"overconfidence"`
	BrierScore     float64  `json:"brier_score"`
	BaseRate       float64  `json:"base_rate"`
	Reliability    float64  `json:"reliability"`
	Resolution     float64  `json:"resolution"`
	Uncertainty    float64  `json:"uncertainty"`
	Buckets        []Bucket `json:"buckets"`
}

// Tracker accumulates predictions behind a lock.
type Tracker struct {
	buckets int
	now     func() time.Time

	mu          sync.RWMutex
	predictions []model.Prediction
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithBuckets sets the number of equal-width confidence buckets.
func WithBuckets(n int) Option {
	return func(t *Tracker) { t.buckets = n }
}

// WithClock overrides the clock used to stamp new predictions.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates an empty tracker.
func NewTracker(opts ...Option) (*Tracker, error) {
	t := &Tracker{buckets: DefaultBuckets, now: time.Now}
	for _, fn := range opts {
		fn(t)
	}
	if t.buckets < 1 || t.buckets > MaxBuckets {
		return nil, model.Invalid("buckets", t.buckets, "must be between 1 and 1000")
	}
	return t, nil
}

// RecordPrediction validates and appends a new prediction.
func (t *Tracker) RecordPrediction(statement string, confidence float64, actual bool) (model.Prediction, error) {
	p := model.Prediction{
		ID:         uuid.New(),
		Statement:  strings.TrimSpace(statement),
		Confidence: confidence,
		Actual:     actual,
		RecordedAt: t.now().UTC(),
	}
	if err := t.Record(p); err != nil {
		return model.Prediction{}, err
	}
	return p, nil
}

// Record appends a fully formed prediction, e.g. one replayed from storage.
// A rejected record is not appended; the error carries the index it would
// have been stored at.
func (t *Tracker) Record(p model.Prediction) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := p.Validate(); err != nil {
		if ve, ok := err.(*model.ValidationError); ok {
			ve.Index = len(t.predictions)
		}
		return err
	}
	t.predictions = append(t.predictions, p)
	return nil
}

// Len returns the number of recorded predictions.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.predictions)
}

// Snapshot returns a copy of the recorded predictions in append order.
func (t *Tracker) Snapshot() []model.Prediction {
	snap := t.view()
	out := make([]model.Prediction, len(snap))
	copy(out, snap)
	return out
}

// view returns the current prefix of the log. Elements are never rewritten
// after append, so the returned slice is safe to read without the lock.
func (t *Tracker) view() []model.Prediction {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.predictions[:len(t.predictions):len(t.predictions)]
}

// Analyze computes the calibration report over every prediction recorded so far.
// Returns *model.InsufficientDataError when nothing has been recorded.
func (t *Tracker) Analyze() (Report, error) {
	return Analyze(t.view(), t.buckets)
}

// Analyze computes a calibration report over predictions using n equal-width
// buckets. The input is not modified.
func Analyze(predictions []model.Prediction, n int) (Report, error) {
	if len(predictions) == 0 {
		return Report{}, &model.InsufficientDataError{Analysis: "calibration", Required: 1, Got: 0}
	}
	if n < 1 || n > MaxBuckets {
		return Report{}, model.Invalid("buckets", n, "must be between 1 and 1000")
	}

	type acc struct {
		count    int
		sumConf  float64
		positive int
	}
	bins := make([]acc, n)
	var brier float64
	var positives int
	for _, p := range predictions {
		o := p.Outcome()
		d := p.Confidence - o
		brier += d * d
		if p.Actual {
			positives++
		}
		b := bucketIndex(p.Confidence, n)
		bins[b].count++
		bins[b].sumConf += p.Confidence
		if p.Actual {
			bins[b].positive++
		}
	}

	total := float64(len(predictions))
	baseRate := float64(positives) / total
	r := Report{
		Count:       len(predictions),
		BrierScore:  brier / total,
		BaseRate:    baseRate,
		Uncertainty: baseRate * (1 - baseRate),
	}

	var absGap, gap float64
	for i, b := range bins {
		if b.count == 0 {
			continue
		}
		bucket := Bucket{
			Lower:         float64(i) / float64(n),
			Upper:         float64(i+1) / float64(n),
			Count:         b.count,
			PredictedMean: b.sumConf / float64(b.count),
			ObservedRate:  float64(b.positive) / float64(b.count),
		}
		w := float64(b.count) / total
		g := bucket.Gap()
		absGap += w * math.Abs(g)
		gap += w * g
		r.Reliability += w * g * g
		dr := bucket.ObservedRate - baseRate
		r.Resolution += w * dr * dr
		r.Buckets = append(r.Buckets, bucket)
	}

	r.Score = 1 - absGap
	r.Overconfidence = gap
	return r, nil
}

// bucketIndex maps a confidence in (0, 1) to [0, n). Confidence 1 is
// rejected upstream, but the top bucket is closed so it would land there.
func bucketIndex(c float64, n int) int {
	i := int(c * float64(n))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}
