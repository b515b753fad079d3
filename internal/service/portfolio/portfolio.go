// Package portfolio aggregates scored decisions over a timeframe: overall and
// per-category averages, grade distribution, and a trend series split into
// equal sub-periods.
//
// Absent values are reported as nil, never as NaN or a misleading zero.
package portfolio

import (
	"math"
	"math/big"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
)

// StableSlope is the per-period DQS slope below which a trend is "stable".
const StableSlope = 0.05

// MaxPeriods bounds the number of trend sub-periods.
const MaxPeriods = 1000

// Record is one scored decision supplied by the repository.
type Record struct {
	DecisionID   uuid.UUID `json:"decision_id"`
	Category     string    `json:"category"`
	DecisionDate time.Time `json:"decision_date"`
	Score        float64   `json:"score"`
	Grade        string    `json:"grade"`
	// ChosenRegret is set when a counterfactual assessment exists.
	ChosenRegret *float64 `json:"chosen_regret,omitempty"`
}

// Analyze aggregates the records that fall within tf into periods equal
// sub-periods. records is not modified.
func Analyze(records []Record, tf model.Timeframe, periods int) (model.Portfolio, error) {
	if err := tf.Validate(); err != nil {
		return model.Portfolio{}, err
	}
	if periods < 1 || periods > MaxPeriods {
		return model.Portfolio{}, model.Invalid("periods", periods, "must be between 1 and 1000")
	}

	in := make([]Record, 0, len(records))
	for i, r := range records {
		if math.IsNaN(r.Score) || math.IsInf(r.Score, 0) {
			return model.Portfolio{}, &model.ValidationError{Field: "records.score", Index: i, Value: r.Score, Reason: "must be finite"}
		}
		if tf.Contains(r.DecisionDate) {
			in = append(in, r)
		}
	}

	p := model.Portfolio{
		Timeframe:         tf,
		Count:             len(in),
		GradeDistribution: map[string]int{},
		Categories:        []model.CategoryStat{},
		Trend:             trend(in, tf, periods),
		TrendDirection:    model.TrendInsufficientData,
	}
	if len(in) == 0 {
		return p, nil
	}

	scores := make([]float64, len(in))
	var regrets []float64
	for i, r := range in {
		scores[i] = r.Score
		p.DecisionIDs = append(p.DecisionIDs, r.DecisionID)
		if r.Grade != "" {
			p.GradeDistribution[r.Grade]++
		}
		if r.ChosenRegret != nil {
			regrets = append(regrets, *r.ChosenRegret)
		}
	}
	p.AvgDQS = ptr(mean(scores))
	p.StdDevDQS = ptr(stdDev(scores))
	if len(regrets) > 0 {
		p.AvgChosenRegret = ptr(mean(regrets))
	}

	p.Categories = categories(in)
	best, worst := extremes(p.Categories)
	p.BestCategory = &best
	p.WorstCategory = &worst

	if slope, ok := trendSlope(p.Trend); ok {
		p.TrendSlope = ptr(slope)
		p.TrendDirection = direction(slope)
	}
	return p, nil
}

// categories returns per-category stats sorted by name.
func categories(in []Record) []model.CategoryStat {
	sums := map[string]float64{}
	counts := map[string]int{}
	for _, r := range in {
		sums[r.Category] += r.Score
		counts[r.Category]++
	}
	out := make([]model.CategoryStat, 0, len(counts))
	for c, n := range counts {
		out = append(out, model.CategoryStat{Category: c, Count: n, AvgDQS: sums[c] / float64(n)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

// extremes picks the highest and lowest mean category. stats is sorted by
// name and comparisons are strict, so ties resolve to the lexicographically
// smallest name.
func extremes(stats []model.CategoryStat) (best, worst string) {
	b, w := stats[0], stats[0]
	for _, s := range stats[1:] {
		if s.AvgDQS > b.AvgDQS {
			b = s
		}
		if s.AvgDQS < w.AvgDQS {
			w = s
		}
	}
	return b.Category, w.Category
}

// trend splits tf into periods equal sub-periods. Each is half-open except
// the last, which includes tf.End. Offsets are exact nanosecond counts, so
// timeframes longer than a time.Duration can hold still split evenly.
func trend(in []Record, tf model.Timeframe, periods int) []model.TrendPoint {
	span := nanosBetween(tf.Start, tf.End)
	n := big.NewInt(int64(periods))
	boundary := func(i int) time.Time {
		off := new(big.Int).Mul(span, big.NewInt(int64(i)))
		return addNanos(tf.Start, off.Quo(off, n))
	}

	points := make([]model.TrendPoint, periods)
	sums := make([]float64, periods)
	for i := range points {
		points[i].Start = boundary(i)
		points[i].End = boundary(i + 1)
	}
	points[periods-1].End = tf.End

	for _, r := range in {
		i := periods - 1
		if span.Sign() > 0 {
			off := nanosBetween(tf.Start, r.DecisionDate)
			off.Mul(off, n).Quo(off, span)
			i = min(int(off.Int64()), periods-1)
		}
		points[i].Count++
		sums[i] += r.Score
	}
	for i := range points {
		if points[i].Count > 0 {
			points[i].AvgDQS = ptr(sums[i] / float64(points[i].Count))
		}
	}
	return points
}

var nanosPerSecond = big.NewInt(int64(time.Second))

// nanosBetween returns b - a in nanoseconds without time.Duration's
// roughly 292-year limit.
func nanosBetween(a, b time.Time) *big.Int {
	d := big.NewInt(b.Unix() - a.Unix())
	d.Mul(d, nanosPerSecond)
	return d.Add(d, big.NewInt(int64(b.Nanosecond()-a.Nanosecond())))
}

// addNanos returns t plus a non-negative nanosecond offset.
func addNanos(t time.Time, off *big.Int) time.Time {
	sec, ns := new(big.Int).QuoRem(off, nanosPerSecond, new(big.Int))
	return time.Unix(t.Unix()+sec.Int64(), int64(t.Nanosecond())+ns.Int64()).In(t.Location())
}

// trendSlope fits a least-squares line through present sub-periods, using
// the period index as x. Requires at least two present points.
func trendSlope(points []model.TrendPoint) (float64, bool) {
	var xs, ys []float64
	for i, p := range points {
		if p.AvgDQS != nil {
			xs = append(xs, float64(i))
			ys = append(ys, *p.AvgDQS)
		}
	}
	if len(xs) < 2 {
		return 0, false
	}
	mx, my := mean(xs), mean(ys)
	var num, den float64
	for i := range xs {
		num += (xs[i] - mx) * (ys[i] - my)
		den += (xs[i] - mx) * (xs[i] - mx)
	}
	return num / den, true
}

func direction(slope float64) model.TrendDirection {
	switch {
	case slope >= StableSlope:
		return model.TrendImproving
	case slope <= -StableSlope:
		return model.TrendDeclining
	default:
		return model.TrendStable
	}
}

func mean(v []float64) float64 {
	var s float64
	for _, x := range v {
		s += x
	}
	return s / float64(len(v))
}

// stdDev is the population standard deviation.
func stdDev(v []float64) float64 {
	m := mean(v)
	var ss float64
	for _, x := range v {
		ss += (x - m) * (x - m)
	}
	return math.Sqrt(ss / float64(len(v)))
}

func ptr[T any](v T) *T { return &v }
