package lite_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/storage"
	"github.com/ashita-ai/hyoka/internal/storage/lite"
)

var day = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T) *lite.Store {
	t.Helper()
	s, err := lite.Open(context.Background(), lite.MemoryPath, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(t *testing.T, category string, date time.Time, score float64) model.ScoreRecord {
	t.Helper()
	sc, err := model.NewScorecard(model.ScorecardInput{
		Decision:      "decision in " + category,
		DecisionDate:  date,
		DecisionMaker: "tester",
		Category:      category,
		Ratings:       model.Ratings{7, 7, 7, 7, 7, 7},
	}, day)
	require.NoError(t, err)
	return model.ScoreRecord{Scorecard: sc, WeightProfile: "default", Weights: model.DefaultWeights(), Score: score, Grade: "Good", WeakestDimension: model.DimInformation}
}

func TestScorecardVersions(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	v1 := record(t, "infra", day, 7.0)
	require.NoError(t, s.InsertScorecard(ctx, v1))

	next, err := v1.Rerate(model.Ratings{9, 9, 9, 9, 9, 9}, day.Add(time.Hour))
	require.NoError(t, err)
	v2 := model.ScoreRecord{Scorecard: next, WeightProfile: "default", Weights: model.DefaultWeights(), Score: 9, Grade: "Excellent", WeakestDimension: model.DimFraming}
	require.NoError(t, s.InsertScorecard(ctx, v2))

	latest, err := s.LatestScorecard(ctx, v1.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, v2, latest)

	history, err := s.ScorecardHistory(ctx, v1.DecisionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, v1, history[0])
	assert.Nil(t, history[0].SupersedesID)
	require.NotNil(t, history[1].SupersedesID)
	assert.Equal(t, v1.ID, *history[1].SupersedesID)

	dup := v2
	dup.ID = uuid.New()
	assert.ErrorIs(t, s.InsertScorecard(ctx, dup), storage.ErrConflict)
}

func TestScorecardNotFound(t *testing.T) {
	s := openStore(t)
	_, err := s.LatestScorecard(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.ScorecardHistory(context.Background(), uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListLatestScorecards(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	a := record(t, "infra", day, 6)
	b := record(t, "hiring", day.AddDate(0, 0, 1), 8)
	late := record(t, "infra", day.AddDate(0, 1, 0), 5)
	for _, r := range []model.ScoreRecord{a, b, late} {
		require.NoError(t, s.InsertScorecard(ctx, r))
	}
	next, err := a.Rerate(model.Ratings{8, 8, 8, 8, 8, 8}, day)
	require.NoError(t, err)
	a2 := model.ScoreRecord{Scorecard: next, WeightProfile: "default", Weights: model.DefaultWeights(), Score: 8, Grade: "Good", WeakestDimension: model.DimFraming}
	require.NoError(t, s.InsertScorecard(ctx, a2))

	tf := model.Timeframe{Start: day, End: day.AddDate(0, 0, 7)}
	got, err := s.ListLatestScorecards(ctx, tf, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, a2.ID, got[0].ID, "only the latest version is listed")
	assert.Equal(t, b.ID, got[1].ID)

	got, err = s.ListLatestScorecards(ctx, tf, "hiring")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, b.ID, got[0].ID)
}

func TestDatesOutsideUnixNanoRange(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	early := record(t, "history", time.Date(1500, 6, 1, 0, 0, 0, 0, time.UTC), 6)
	recent := record(t, "infra", day, 8)
	far := record(t, "infra", time.Date(2500, 1, 1, 0, 0, 0, 0, time.UTC), 7)
	for _, r := range []model.ScoreRecord{early, recent, far} {
		require.NoError(t, s.InsertScorecard(ctx, r))
	}

	got, err := s.LatestScorecard(ctx, early.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, early.DecisionDate, got.DecisionDate)

	tests := []struct {
		name string
		tf   model.Timeframe
		want []uuid.UUID
	}{
		{"start before 1678", model.Timeframe{Start: time.Date(1600, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}, []uuid.UUID{recent.ID}},
		{"end after 2262", model.Timeframe{Start: day, End: time.Date(2600, 1, 1, 0, 0, 0, 0, time.UTC)}, []uuid.UUID{recent.ID, far.ID}},
		{"whole calendar", model.Timeframe{Start: time.Date(1, 1, 2, 0, 0, 0, 0, time.UTC), End: time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)}, []uuid.UUID{early.ID, recent.ID, far.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, err := s.ListLatestScorecards(ctx, tt.tf, "")
			require.NoError(t, err)
			ids := make([]uuid.UUID, len(recs))
			for i, r := range recs {
				ids[i] = r.ID
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestPredictions(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	decision := uuid.New()

	preds := []model.Prediction{
		{ID: uuid.New(), Statement: "a", Confidence: 0.7, Actual: true, PredictionMaker: "ana", RecordedAt: day},
		{ID: uuid.New(), Statement: "b", Confidence: 0.2, Actual: false, PredictionMaker: "ben", RecordedAt: day.Add(time.Hour)},
		{ID: uuid.New(), Statement: "c", Confidence: 0.9, Actual: false, PredictionMaker: "ana", DecisionID: &decision, RecordedAt: day.Add(2 * time.Hour)},
	}
	for _, p := range preds {
		require.NoError(t, s.InsertPrediction(ctx, p))
	}
	assert.ErrorIs(t, s.InsertPrediction(ctx, preds[0]), storage.ErrConflict)

	all, err := s.ListPredictions(ctx, model.PredictionFilter{})
	require.NoError(t, err)
	assert.Equal(t, preds, all)

	ana, err := s.ListPredictions(ctx, model.PredictionFilter{PredictionMaker: "ana"})
	require.NoError(t, err)
	assert.Len(t, ana, 2)

	byDecision, err := s.ListPredictions(ctx, model.PredictionFilter{DecisionID: &decision})
	require.NoError(t, err)
	require.Len(t, byDecision, 1)
	assert.Equal(t, "c", byDecision[0].Statement)

	window, err := s.ListPredictions(ctx, model.PredictionFilter{Since: day.Add(time.Minute), Limit: 1})
	require.NoError(t, err)
	require.Len(t, window, 1)
	assert.Equal(t, "b", window[0].Statement)
}

func TestOutcomes(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	r := record(t, "infra", day, 7)
	require.NoError(t, s.InsertScorecard(ctx, r))

	o := model.DecisionOutcome{
		DecisionID:   r.DecisionID,
		Chosen:       "postgres",
		OutcomeValue: 60,
		Alternatives: []model.AlternativeEstimate{{Name: "mysql", EstimatedOutcome: 100}},
		RecordedAt:   day,
	}
	require.NoError(t, s.UpsertOutcome(ctx, o))

	got, err := s.GetOutcome(ctx, r.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, o, got)

	o.OutcomeValue = 90
	o.Alternatives = nil
	require.NoError(t, s.UpsertOutcome(ctx, o))
	got, err = s.GetOutcome(ctx, r.DecisionID)
	require.NoError(t, err)
	assert.Equal(t, 90.0, got.OutcomeValue)
	assert.Empty(t, got.Alternatives)

	listed, err := s.ListOutcomes(ctx, model.Timeframe{Start: day, End: day})
	require.NoError(t, err)
	assert.Contains(t, listed, r.DecisionID)

	listed, err = s.ListOutcomes(ctx, model.Timeframe{Start: day.Add(time.Second), End: day.AddDate(0, 0, 1)})
	require.NoError(t, err)
	assert.Empty(t, listed)

	_, err = s.GetOutcome(ctx, uuid.New())
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestWeightProfiles(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.SaveWeightProfile(ctx, "strategy", model.UniformWeights()))
	require.NoError(t, s.SaveWeightProfile(ctx, "strategy", model.DefaultWeights()))

	w, err := s.GetWeightProfile(ctx, "strategy")
	require.NoError(t, err)
	assert.Equal(t, model.DefaultWeights(), w)

	_, err = s.GetWeightProfile(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestOpenFileReopens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "hyoka.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s, err := lite.Open(ctx, path, logger)
	require.NoError(t, err)
	require.NoError(t, s.SaveWeightProfile(ctx, "p", model.UniformWeights()))
	require.NoError(t, s.Close())

	s, err = lite.Open(ctx, path, logger)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	_, err = s.GetWeightProfile(ctx, "p")
	require.NoError(t, err)
}
