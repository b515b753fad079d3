// Package evaluation joins the scoring, calibration, counterfactual, and
// portfolio analyses with a Repository.
//
// Both the HTTP API and MCP server delegate to this service so validation,
// persistence, and metrics behave the same on every interface.
package evaluation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/ashita-ai/hyoka/internal/ctxutil"
	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/calibration"
	"github.com/ashita-ai/hyoka/internal/service/counterfactual"
	"github.com/ashita-ai/hyoka/internal/service/dqs"
	"github.com/ashita-ai/hyoka/internal/service/portfolio"
	"github.com/ashita-ai/hyoka/internal/storage"
	"github.com/ashita-ai/hyoka/internal/telemetry"
)

// DefaultProfile names the built-in weights. It cannot be overwritten.
const DefaultProfile = "default"

// Repository is the persistence surface the service needs. Implementations
// return storage.ErrNotFound (wrapped) for missing entities.
type Repository interface {
	InsertScorecard(ctx context.Context, r model.ScoreRecord) error
	LatestScorecard(ctx context.Context, decisionID uuid.UUID) (model.ScoreRecord, error)
	ScorecardHistory(ctx context.Context, decisionID uuid.UUID) ([]model.ScoreRecord, error)
	ListLatestScorecards(ctx context.Context, tf model.Timeframe, category string) ([]model.ScoreRecord, error)

	InsertPrediction(ctx context.Context, p model.Prediction) error
	ListPredictions(ctx context.Context, f model.PredictionFilter) ([]model.Prediction, error)

	UpsertOutcome(ctx context.Context, o model.DecisionOutcome) error
	GetOutcome(ctx context.Context, decisionID uuid.UUID) (model.DecisionOutcome, error)
	ListOutcomes(ctx context.Context, tf model.Timeframe) (map[uuid.UUID]model.DecisionOutcome, error)

	SaveWeightProfile(ctx context.Context, name string, w model.Weights) error
	GetWeightProfile(ctx context.Context, name string) (model.Weights, error)
}

// Config tunes the analyses. Zero values select the defaults.
type Config struct {
	CalibrationBuckets int
	TrendPeriods       int
	WeightProfile      string
	GradeBands         dqs.GradeBands
	Now                func() time.Time
	// Retry governs rerates that lose a version race. Zero selects
	// storage.DefaultRetry.
	Retry              storage.RetryPolicy
}

// Service encapsulates decision-quality business logic shared by HTTP and MCP handlers.
type Service struct {
	repo    Repository
	calc    *dqs.Calculator
	buckets int
	periods int
	profile string
	retry   storage.RetryPolicy
	now     func() time.Time
	logger  *slog.Logger

	dqsScore          metric.Float64Histogram
	brierScore        metric.Float64Histogram
	predictions       metric.Int64Counter
	portfolioDuration metric.Float64Histogram
}

// New creates a Service over repo.
func New(repo Repository, cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.CalibrationBuckets == 0 {
		cfg.CalibrationBuckets = calibration.DefaultBuckets
	}
	if cfg.CalibrationBuckets < 1 || cfg.CalibrationBuckets > calibration.MaxBuckets {
		return nil, fmt.Errorf("evaluation: %w", model.Invalid("calibration_buckets", cfg.CalibrationBuckets, "must be between 1 and 1000"))
	}
	if cfg.TrendPeriods == 0 {
		cfg.TrendPeriods = 4
	}
	if cfg.TrendPeriods < 1 || cfg.TrendPeriods > portfolio.MaxPeriods {
		return nil, fmt.Errorf("evaluation: %w", model.Invalid("trend_periods", cfg.TrendPeriods, "must be between 1 and 1000"))
	}
	if cfg.WeightProfile == "" {
		cfg.WeightProfile = DefaultProfile
	}
	if cfg.GradeBands == nil {
		cfg.GradeBands = dqs.DefaultGradeBands()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Retry == (storage.RetryPolicy{}) {
		cfg.Retry = storage.DefaultRetry
	}
	calc, err := dqs.NewCalculator(dqs.WithGradeBands(cfg.GradeBands))
	if err != nil {
		return nil, fmt.Errorf("evaluation: %w", err)
	}

	meter := telemetry.Meter("hyoka/evaluation")
	dqsScore, _ := meter.Float64Histogram("hyoka.dqs.score",
		metric.WithDescription("Decision Quality Score of scored decisions"),
	)
	brier, _ := meter.Float64Histogram("hyoka.calibration.brier",
		metric.WithDescription("Brier score of calibration reports"),
	)
	preds, _ := meter.Int64Counter("hyoka.predictions.recorded",
		metric.WithDescription("Predictions recorded"),
	)
	portDur, _ := meter.Float64Histogram("hyoka.portfolio.duration",
		metric.WithDescription("Time to build a portfolio report (ms)"),
		metric.WithUnit("ms"),
	)

	return &Service{
		repo:              repo,
		calc:              calc,
		buckets:           cfg.CalibrationBuckets,
		periods:           cfg.TrendPeriods,
		profile:           cfg.WeightProfile,
		retry:             cfg.Retry,
		now:               cfg.Now,
		logger:            logger,
		dqsScore:          dqsScore,
		brierScore:        brier,
		predictions:       preds,
		portfolioDuration: portDur,
	}, nil
}

// ScoreInput contains the data needed to score a new decision.
type ScoreInput struct {
	model.ScorecardInput
	// WeightProfile overrides the configured profile for this decision.
	WeightProfile string `json:"weight_profile,omitempty"`
}

// ScoredDecision is one scorecard version with its computed DQS.
type ScoredDecision struct {
	Scorecard     model.Scorecard `json:"scorecard"`
	WeightProfile string          `json:"weight_profile"`
	Weights       model.Weights   `json:"weights"`
	DQS           dqs.Result      `json:"dqs"`
}

// ScoreDecision validates and scores a new decision, then persists version 1.
func (s *Service) ScoreDecision(ctx context.Context, in ScoreInput) (ScoredDecision, error) {
	profile, weights, err := s.resolveWeights(ctx, in.WeightProfile)
	if err != nil {
		return ScoredDecision{}, fmt.Errorf("score: %w", err)
	}
	sc, err := model.NewScorecard(in.ScorecardInput, s.now())
	if err != nil {
		return ScoredDecision{}, fmt.Errorf("score: %w", err)
	}
	return s.persist(ctx, "score", sc, profile, weights)
}

// RerateDecision stores a new version of an existing decision with new
// ratings. An empty profile keeps the weights of the latest version.
func (s *Service) RerateDecision(ctx context.Context, decisionID uuid.UUID, ratings model.Ratings, profile string) (ScoredDecision, error) {
	var (
		name    string
		weights model.Weights
		err     error
	)
	if profile != "" {
		if name, weights, err = s.resolveWeights(ctx, profile); err != nil {
			return ScoredDecision{}, fmt.Errorf("rerate: %w", err)
		}
	}

	// A concurrent rerate may claim the next version between our read and
	// insert; re-read the latest version and try again.
	var out ScoredDecision
	attempt := 0
	err = s.retry.Do(ctx, func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			s.logger.Debug("rerate: version taken, retrying", "decision_id", decisionID, "attempt", attempt)
		}
		latest, err := s.repo.LatestScorecard(ctx, decisionID)
		if err != nil {
			return fmt.Errorf("rerate: %w", err)
		}
		n, w := name, weights
		if profile == "" {
			n, w = latest.WeightProfile, latest.Weights
		}
		next, err := latest.Rerate(ratings, s.now())
		if err != nil {
			return fmt.Errorf("rerate: %w", err)
		}
		out, err = s.persist(ctx, "rerate", next, n, w)
		return err
	})
	if err != nil {
		return ScoredDecision{}, err
	}
	return out, nil
}

func (s *Service) persist(ctx context.Context, op string, sc model.Scorecard, profile string, weights model.Weights) (ScoredDecision, error) {
	res, err := s.calc.Compute(sc, weights)
	if err != nil {
		return ScoredDecision{}, fmt.Errorf("%s: %w", op, err)
	}

	rec := model.ScoreRecord{
		Scorecard:        sc,
		WeightProfile:    profile,
		Weights:          weights,
		Score:            res.Score,
		Grade:            string(res.Grade),
		WeakestDimension: res.WeakestDimension,
	}
	if err := s.repo.InsertScorecard(ctx, rec); err != nil {
		return ScoredDecision{}, fmt.Errorf("%s: %w", op, err)
	}

	attrs := metric.WithAttributes(attribute.String("category", sc.Category))
	s.dqsScore.Record(ctx, res.Score, attrs)
	trace.SpanFromContext(ctx).SetAttributes(
		attribute.String("hyoka.decision_id", sc.DecisionID.String()),
		attribute.Int("hyoka.version", sc.Version),
		attribute.Float64("hyoka.dqs", res.Score),
	)
	s.logger.Info(op+": decision scored",
		"decision_id", sc.DecisionID,
		"version", sc.Version,
		"score", res.Score,
		"grade", res.Grade,
		"weakest", res.WeakestDimension,
		"request_id", ctxutil.RequestID(ctx),
	)
	return ScoredDecision{Scorecard: sc, WeightProfile: profile, Weights: weights, DQS: res}, nil
}

// GetDecision returns the latest version of a decision with its DQS.
func (s *Service) GetDecision(ctx context.Context, decisionID uuid.UUID) (ScoredDecision, error) {
	rec, err := s.repo.LatestScorecard(ctx, decisionID)
	if err != nil {
		return ScoredDecision{}, fmt.Errorf("get decision: %w", err)
	}
	return s.rescore(rec)
}

// DecisionHistory returns every version of a decision, oldest first.
func (s *Service) DecisionHistory(ctx context.Context, decisionID uuid.UUID) ([]ScoredDecision, error) {
	recs, err := s.repo.ScorecardHistory(ctx, decisionID)
	if err != nil {
		return nil, fmt.Errorf("decision history: %w", err)
	}
	out := make([]ScoredDecision, len(recs))
	for i, rec := range recs {
		if out[i], err = s.rescore(rec); err != nil {
			return nil, fmt.Errorf("decision history: %w", err)
		}
	}
	return out, nil
}

// rescore rebuilds the full DQS result from the stored ratings and weights.
func (s *Service) rescore(rec model.ScoreRecord) (ScoredDecision, error) {
	res, err := s.calc.Compute(rec.Scorecard, rec.Weights)
	if err != nil {
		return ScoredDecision{}, err
	}
	return ScoredDecision{Scorecard: rec.Scorecard, WeightProfile: rec.WeightProfile, Weights: rec.Weights, DQS: res}, nil
}

// PredictionInput contains the data needed to record a resolved prediction.
type PredictionInput struct {
	Statement       string     `json:"statement"`
	Confidence      float64    `json:"confidence"`
	Actual          bool       `json:"actual"`
	DecisionID      *uuid.UUID `json:"decision_id,omitempty"`
	PredictionMaker string     `json:"prediction_maker,omitempty"`
}

// RecordPrediction validates and stores a resolved prediction.
func (s *Service) RecordPrediction(ctx context.Context, in PredictionInput) (model.Prediction, error) {
	p := model.Prediction{
		ID:              uuid.New(),
		Statement:       strings.TrimSpace(in.Statement),
		Confidence:      in.Confidence,
		Actual:          in.Actual,
		DecisionID:      in.DecisionID,
		PredictionMaker: strings.TrimSpace(in.PredictionMaker),
		RecordedAt:      s.now().UTC(),
	}
	if err := p.Validate(); err != nil {
		return model.Prediction{}, fmt.Errorf("record prediction: %w", err)
	}
	if err := s.repo.InsertPrediction(ctx, p); err != nil {
		return model.Prediction{}, fmt.Errorf("record prediction: %w", err)
	}
	s.predictions.Add(ctx, 1)
	return p, nil
}

// Calibration replays the stored predictions matching f into a fresh tracker
// and analyzes them.
func (s *Service) Calibration(ctx context.Context, f model.PredictionFilter) (calibration.Report, error) {
	preds, err := s.repo.ListPredictions(ctx, f)
	if err != nil {
		return calibration.Report{}, fmt.Errorf("calibration: %w", err)
	}
	tracker, err := calibration.NewTracker(calibration.WithBuckets(s.buckets), calibration.WithClock(s.now))
	if err != nil {
		return calibration.Report{}, fmt.Errorf("calibration: %w", err)
	}
	for _, p := range preds {
		if err := tracker.Record(p); err != nil {
			return calibration.Report{}, fmt.Errorf("calibration: stored prediction %s: %w", p.ID, err)
		}
	}
	report, err := tracker.Analyze()
	if err != nil {
		return calibration.Report{}, fmt.Errorf("calibration: %w", err)
	}
	s.brierScore.Record(ctx, report.BrierScore)
	return report, nil
}

// RecordOutcome stores the outcome of an existing decision and returns its
// regret assessment. Recording again replaces the earlier outcome.
func (s *Service) RecordOutcome(ctx context.Context, o model.DecisionOutcome) (counterfactual.Assessment, error) {
	o.Chosen = strings.TrimSpace(o.Chosen)
	alts := make([]model.AlternativeEstimate, len(o.Alternatives))
	for i, alt := range o.Alternatives {
		alts[i] = model.AlternativeEstimate{Name: strings.TrimSpace(alt.Name), EstimatedOutcome: alt.EstimatedOutcome}
	}
	o.Alternatives = alts
	assessment, err := counterfactual.Assess(o)
	if err != nil {
		return counterfactual.Assessment{}, fmt.Errorf("record outcome: %w", err)
	}
	if _, err := s.repo.LatestScorecard(ctx, o.DecisionID); err != nil {
		return counterfactual.Assessment{}, fmt.Errorf("record outcome: %w", err)
	}
	o.RecordedAt = s.now().UTC()
	if err := s.repo.UpsertOutcome(ctx, o); err != nil {
		return counterfactual.Assessment{}, fmt.Errorf("record outcome: %w", err)
	}
	s.logger.Info("outcome recorded",
		"decision_id", o.DecisionID,
		"chosen_regret", assessment.ChosenRegret,
		"optimal", assessment.Optimal,
		"request_id", ctxutil.RequestID(ctx),
	)
	return assessment, nil
}

// Regret assesses the recorded outcome of a decision.
func (s *Service) Regret(ctx context.Context, decisionID uuid.UUID) (counterfactual.Assessment, error) {
	o, err := s.repo.GetOutcome(ctx, decisionID)
	if err != nil {
		return counterfactual.Assessment{}, fmt.Errorf("regret: %w", err)
	}
	a, err := counterfactual.Assess(o)
	if err != nil {
		return counterfactual.Assessment{}, fmt.Errorf("regret: %w", err)
	}
	return a, nil
}

// PortfolioQuery selects the decisions to aggregate. Periods of zero uses
// the configured trend period count.
type PortfolioQuery struct {
	Timeframe model.Timeframe `json:"timeframe"`
	Category  string          `json:"category,omitempty"`
	Periods   int             `json:"periods,omitempty"`
}

// Portfolio loads the latest scorecards and outcomes in the timeframe
// concurrently and aggregates them.
func (s *Service) Portfolio(ctx context.Context, q PortfolioQuery) (model.Portfolio, error) {
	start := time.Now()
	if err := q.Timeframe.Validate(); err != nil {
		return model.Portfolio{}, fmt.Errorf("portfolio: %w", err)
	}
	periods := q.Periods
	if periods == 0 {
		periods = s.periods
	}

	var (
		scored   []model.ScoreRecord
		outcomes map[uuid.UUID]model.DecisionOutcome
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		scored, err = s.repo.ListLatestScorecards(gctx, q.Timeframe, strings.TrimSpace(q.Category))
		return err
	})
	g.Go(func() error {
		var err error
		outcomes, err = s.repo.ListOutcomes(gctx, q.Timeframe)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.Portfolio{}, fmt.Errorf("portfolio: %w", err)
	}

	records := make([]portfolio.Record, len(scored))
	for i, rec := range scored {
		records[i] = portfolio.Record{
			DecisionID:   rec.DecisionID,
			Category:     rec.Category,
			DecisionDate: rec.DecisionDate,
			Score:        rec.Score,
			Grade:        rec.Grade,
		}
		o, ok := outcomes[rec.DecisionID]
		if !ok {
			continue
		}
		a, err := counterfactual.Assess(o)
		if err != nil {
			s.logger.Warn("portfolio: skipping unassessable outcome", "decision_id", rec.DecisionID, "error", err)
			continue
		}
		regret := a.ChosenRegret
		records[i].ChosenRegret = &regret
	}

	p, err := portfolio.Analyze(records, q.Timeframe, periods)
	if err != nil {
		return model.Portfolio{}, fmt.Errorf("portfolio: %w", err)
	}
	s.portfolioDuration.Record(ctx, float64(time.Since(start).Milliseconds()))
	return p, nil
}

// SaveWeightProfile validates and stores a named weight profile.
func (s *Service) SaveWeightProfile(ctx context.Context, name string, w model.Weights) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("save weight profile: %w", model.Invalid("name", nil, "must not be empty"))
	}
	if name == DefaultProfile {
		return fmt.Errorf("save weight profile: %w", model.Invalid("name", name, "is reserved for the built-in weights"))
	}
	if err := w.Validate(); err != nil {
		return fmt.Errorf("save weight profile: %w", err)
	}
	if err := s.repo.SaveWeightProfile(ctx, name, w); err != nil {
		return fmt.Errorf("save weight profile: %w", err)
	}
	return nil
}

// WeightProfile returns a named weight profile. DefaultProfile is always available.
func (s *Service) WeightProfile(ctx context.Context, name string) (model.Weights, error) {
	_, w, err := s.resolveWeights(ctx, name)
	return w, err
}

func (s *Service) resolveWeights(ctx context.Context, name string) (string, model.Weights, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = s.profile
	}
	if name == DefaultProfile {
		return name, model.DefaultWeights(), nil
	}
	w, err := s.repo.GetWeightProfile(ctx, name)
	if err != nil {
		return "", model.Weights{}, fmt.Errorf("weight profile %q: %w", name, err)
	}
	return name, w, nil
}
