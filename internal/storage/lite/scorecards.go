package lite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/storage"
)

const scorecardColumns = `id, decision_id, version, supersedes_id, decision, decision_date,
	decision_maker, category, framing, alternatives, information, values_tradeoffs,
	reasoning, commitment, weight_profile, weights, score, grade, weakest_dimension, created_at`

// InsertScorecard stores one scorecard version. A version that already exists
// for the decision returns storage.ErrConflict.
func (s *Store) InsertScorecard(ctx context.Context, r model.ScoreRecord) error {
	weights, err := json.Marshal(r.Weights)
	if err != nil {
		return fmt.Errorf("lite: encode weights: %w", err)
	}
	var supersedes uuid.NullUUID
	if r.SupersedesID != nil {
		supersedes = uuid.NullUUID{UUID: *r.SupersedesID, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO scorecards (`+scorecardColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.DecisionID, r.Version, supersedes, r.Decision, encodeTime(r.DecisionDate),
		r.DecisionMaker, r.Category,
		r.Ratings[model.DimFraming], r.Ratings[model.DimAlternatives], r.Ratings[model.DimInformation],
		r.Ratings[model.DimValuesTradeoffs], r.Ratings[model.DimReasoning], r.Ratings[model.DimCommitment],
		r.WeightProfile, string(weights), r.Score, r.Grade, r.WeakestDimension.String(), encodeTime(r.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lite: insert scorecard %s v%d: %w", r.DecisionID, r.Version, storage.ErrConflict)
		}
		return fmt.Errorf("lite: insert scorecard: %w", err)
	}
	return nil
}

// LatestScorecard returns the highest version of a decision.
func (s *Store) LatestScorecard(ctx context.Context, decisionID uuid.UUID) (model.ScoreRecord, error) {
	recs, err := s.queryScorecards(ctx,
		`SELECT `+scorecardColumns+` FROM scorecards
		 WHERE decision_id = ? ORDER BY version DESC LIMIT 1`, decisionID)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("lite: latest scorecard: %w", err)
	}
	if len(recs) == 0 {
		return model.ScoreRecord{}, fmt.Errorf("lite: decision %s: %w", decisionID, storage.ErrNotFound)
	}
	return recs[0], nil
}

// ScorecardHistory returns every version of a decision, oldest first.
func (s *Store) ScorecardHistory(ctx context.Context, decisionID uuid.UUID) ([]model.ScoreRecord, error) {
	recs, err := s.queryScorecards(ctx,
		`SELECT `+scorecardColumns+` FROM scorecards
		 WHERE decision_id = ? ORDER BY version ASC`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("lite: scorecard history: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("lite: decision %s: %w", decisionID, storage.ErrNotFound)
	}
	return recs, nil
}

// ListLatestScorecards returns the latest version of every decision dated
// within tf. An empty category matches all categories.
func (s *Store) ListLatestScorecards(ctx context.Context, tf model.Timeframe, category string) ([]model.ScoreRecord, error) {
	recs, err := s.queryScorecards(ctx,
		`SELECT `+scorecardColumns+` FROM scorecards s
		 WHERE decision_date BETWEEN ? AND ?
		   AND version = (SELECT MAX(version) FROM scorecards v WHERE v.decision_id = s.decision_id)
		   AND (? = '' OR category = ?)
		 ORDER BY decision_date, id`,
		encodeTime(tf.Start), encodeTime(tf.End), category, category)
	if err != nil {
		return nil, fmt.Errorf("lite: list scorecards: %w", err)
	}
	return recs, nil
}

func (s *Store) queryScorecards(ctx context.Context, query string, args ...any) ([]model.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []model.ScoreRecord
	for rows.Next() {
		r, err := scanScorecard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanScorecard(rows *sql.Rows) (model.ScoreRecord, error) {
	var (
		r                     model.ScoreRecord
		supersedes            uuid.NullUUID
		decisionDate, created string
		weakest, weights      string
	)
	if err := rows.Scan(
		&r.ID, &r.DecisionID, &r.Version, &supersedes, &r.Decision, &decisionDate,
		&r.DecisionMaker, &r.Category,
		&r.Ratings[model.DimFraming], &r.Ratings[model.DimAlternatives], &r.Ratings[model.DimInformation],
		&r.Ratings[model.DimValuesTradeoffs], &r.Ratings[model.DimReasoning], &r.Ratings[model.DimCommitment],
		&r.WeightProfile, &weights, &r.Score, &r.Grade, &weakest, &created,
	); err != nil {
		return model.ScoreRecord{}, err
	}
	if err := json.Unmarshal([]byte(weights), &r.Weights); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("scorecard %s: decode weights: %w", r.ID, err)
	}
	if supersedes.Valid {
		id := supersedes.UUID
		r.SupersedesID = &id
	}
	d, err := model.ParseDimension(weakest)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("scorecard %s: %w", r.ID, err)
	}
	r.WeakestDimension = d
	if r.DecisionDate, err = decodeTime(decisionDate); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("scorecard %s: %w", r.ID, err)
	}
	if r.CreatedAt, err = decodeTime(created); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("scorecard %s: %w", r.ID, err)
	}
	return r, nil
}
