package calibration_test

import (
	"errors"
	"math"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/calibration"
)

func newTracker(t *testing.T, opts ...calibration.Option) *calibration.Tracker {
	t.Helper()
	tr, err := calibration.NewTracker(opts...)
	require.NoError(t, err)
	return tr
}

func TestAnalyze_BrierExample(t *testing.T) {
	tr := newTracker(t)
	for _, p := range []struct {
		c float64
		a bool
	}{{0.80, true}, {0.90, false}, {0.70, true}} {
		_, err := tr.RecordPrediction("launch ships on time", p.c, p.a)
		require.NoError(t, err)
	}

	r, err := tr.Analyze()
	require.NoError(t, err)
	assert.InDelta(t, 0.3133, r.BrierScore, 1e-4)
	assert.Equal(t, 3, r.Count)
	assert.Len(t, r.Buckets, 3)
	assert.InDelta(t, 2.0/3.0, r.BaseRate, 1e-12)
}

func TestAnalyze_PerfectCalibration(t *testing.T) {
	tr := newTracker(t)
	// Bucket [0.7,0.8): 3 of 4 true at 0.75. Bucket [0.2,0.3): 1 of 4 true at 0.25.
	for i := range 4 {
		_, err := tr.RecordPrediction("high", 0.75, i < 3)
		require.NoError(t, err)
		_, err = tr.RecordPrediction("low", 0.25, i == 0)
		require.NoError(t, err)
	}

	r, err := tr.Analyze()
	require.NoError(t, err)
	assert.InDelta(t, 1.0, r.Score, 1e-12)
	assert.InDelta(t, 0.0, r.Overconfidence, 1e-12)
	assert.InDelta(t, 0.0, r.Reliability, 1e-12)
	for _, b := range r.Buckets {
		assert.InDelta(t, b.PredictedMean, b.ObservedRate, 1e-12)
	}
}

func TestAnalyze_OverconfidenceSign(t *testing.T) {
	over := newTracker(t)
	under := newTracker(t)
	for i := range 10 {
		_, err := over.RecordPrediction("sure thing", 0.9, i < 5)
		require.NoError(t, err)
		_, err = under.RecordPrediction("long shot", 0.1, i < 5)
		require.NoError(t, err)
	}

	ro, err := over.Analyze()
	require.NoError(t, err)
	assert.InDelta(t, 0.4, ro.Overconfidence, 1e-9)
	assert.InDelta(t, 0.6, ro.Score, 1e-9)

	ru, err := under.Analyze()
	require.NoError(t, err)
	assert.InDelta(t, -0.4, ru.Overconfidence, 1e-9)
}

func TestAnalyze_NoRecords(t *testing.T) {
	_, err := newTracker(t).Analyze()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInsufficientData))

	var ide *model.InsufficientDataError
	require.ErrorAs(t, err, &ide)
	assert.Equal(t, 0, ide.Got)
}

func TestRecordPrediction_RejectsBoundaryConfidence(t *testing.T) {
	tr := newTracker(t)
	_, err := tr.RecordPrediction("valid", 0.5, true)
	require.NoError(t, err)

	for _, c := range []float64{0, 1, -0.1, 1.5, math.NaN()} {
		_, err := tr.RecordPrediction("bad", c, true)
		require.ErrorIs(t, err, model.ErrValidation, "confidence %v", c)

		var ve *model.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "confidence", ve.Field)
		assert.Equal(t, 1, ve.Index, "rejected record reports the index it would have taken")
	}
	assert.Equal(t, 1, tr.Len(), "rejected records are never appended")
}

func TestRecordPrediction_RequiresStatement(t *testing.T) {
	_, err := newTracker(t).RecordPrediction("   ", 0.5, true)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "statement")
}

func TestAnalyze_IsRepeatableAndNonMutating(t *testing.T) {
	tr := newTracker(t)
	for i := range 20 {
		_, err := tr.RecordPrediction("repeat", 0.05+float64(i)*0.045, i%3 == 0)
		require.NoError(t, err)
	}
	before := tr.Snapshot()

	first, err := tr.Analyze()
	require.NoError(t, err)
	second, err := tr.Analyze()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, before, tr.Snapshot())
}

func TestAnalyze_BrierBoundsAndDecomposition(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	levels := []float64{0.05, 0.15, 0.35, 0.55, 0.65, 0.85, 0.95}
	for trial := range 50 {
		var preds []model.Prediction
		for range 1 + rng.IntN(200) {
			preds = append(preds, model.Prediction{
				Statement:  "p",
				Confidence: levels[rng.IntN(len(levels))],
				Actual:     rng.Float64() < 0.5,
			})
		}
		r, err := calibration.Analyze(preds, calibration.DefaultBuckets)
		require.NoError(t, err)

		assert.Greater(t, r.BrierScore, 0.0, "open-interval confidences can never be perfect")
		assert.LessOrEqual(t, r.BrierScore, 1.0)
		assert.GreaterOrEqual(t, r.Score, 0.0)
		assert.LessOrEqual(t, r.Score, 1.0)

		// With a single confidence level per bucket the Murphy decomposition is exact.
		assert.InDelta(t, r.BrierScore, r.Reliability-r.Resolution+r.Uncertainty, 1e-9, "trial %d", trial)
	}
}

func TestAnalyze_BucketBoundaries(t *testing.T) {
	preds := []model.Prediction{
		{Statement: "a", Confidence: 0.1, Actual: true},
		{Statement: "b", Confidence: 0.0999, Actual: false},
		{Statement: "c", Confidence: 0.999, Actual: true},
	}
	r, err := calibration.Analyze(preds, 10)
	require.NoError(t, err)
	require.Len(t, r.Buckets, 3)
	assert.InDelta(t, 0.0, r.Buckets[0].Lower, 1e-12)
	assert.InDelta(t, 0.1, r.Buckets[1].Lower, 1e-12)
	assert.InDelta(t, 0.9, r.Buckets[2].Lower, 1e-12)
	assert.InDelta(t, 1.0, r.Buckets[2].Upper, 1e-12)

	_, err = calibration.Analyze(preds, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestNewTracker_BucketValidation(t *testing.T) {
	_, err := calibration.NewTracker(calibration.WithBuckets(0))
	assert.ErrorIs(t, err, model.ErrValidation)

	tr := newTracker(t, calibration.WithBuckets(4))
	_, err = tr.RecordPrediction("quartile", 0.3, true)
	require.NoError(t, err)
	r, err := tr.Analyze()
	require.NoError(t, err)
	require.Len(t, r.Buckets, 1)
	assert.InDelta(t, 0.25, r.Buckets[0].Lower, 1e-12)
	assert.InDelta(t, 0.5, r.Buckets[0].Upper, 1e-12)
}

func TestTracker_ConcurrentRecordAndAnalyze(t *testing.T) {
	tr := newTracker(t)
	const producers, perProducer = 16, 200

	var wg sync.WaitGroup
	for p := range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range perProducer {
				_, err := tr.RecordPrediction("concurrent", 0.6, (p+i)%2 == 0)
				assert.NoError(t, err)
			}
		}()
	}

	stop := make(chan struct{})
	var readers sync.WaitGroup
	readers.Add(1)
	go func() {
		defer readers.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			r, err := tr.Analyze()
			if errors.Is(err, model.ErrInsufficientData) {
				continue
			}
			if !assert.NoError(t, err) {
				return
			}
			sum := 0
			for _, b := range r.Buckets {
				sum += b.Count
			}
			assert.Equal(t, r.Count, sum, "snapshot must be consistent")
		}
	}()

	wg.Wait()
	close(stop)
	readers.Wait()

	assert.Equal(t, producers*perProducer, tr.Len())
	r, err := tr.Analyze()
	require.NoError(t, err)
	assert.Equal(t, producers*perProducer, r.Count)
}
