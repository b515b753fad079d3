package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ashita-ai/hyoka/internal/model"
)

const scorecardColumns = `id, decision_id, version, supersedes_id, decision, decision_date,
	decision_maker, category, framing, alternatives, information, values_tradeoffs,
	reasoning, commitment, weight_profile, weights, score, grade, weakest_dimension, created_at`

// InsertScorecard stores one scorecard version. A version that already exists
// for the decision returns ErrConflict.
func (db *DB) InsertScorecard(ctx context.Context, r model.ScoreRecord) error {
	weights, err := json.Marshal(r.Weights)
	if err != nil {
		return fmt.Errorf("storage: encode weights: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO scorecards (`+scorecardColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16::jsonb, $17, $18, $19, $20)`,
		r.ID, r.DecisionID, r.Version, r.SupersedesID, r.Decision, r.DecisionDate,
		r.DecisionMaker, r.Category,
		r.Ratings[model.DimFraming], r.Ratings[model.DimAlternatives], r.Ratings[model.DimInformation],
		r.Ratings[model.DimValuesTradeoffs], r.Ratings[model.DimReasoning], r.Ratings[model.DimCommitment],
		r.WeightProfile, string(weights), r.Score, r.Grade, r.WeakestDimension.String(), r.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: insert scorecard %s v%d: %w", r.DecisionID, r.Version, ErrConflict)
		}
		return fmt.Errorf("storage: insert scorecard: %w", err)
	}
	return nil
}

// LatestScorecard returns the highest version of a decision.
func (db *DB) LatestScorecard(ctx context.Context, decisionID uuid.UUID) (model.ScoreRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+scorecardColumns+` FROM scorecards
		 WHERE decision_id = $1 ORDER BY version DESC LIMIT 1`, decisionID)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("storage: latest scorecard: %w", err)
	}
	recs, err := collectScorecards(rows)
	if err != nil {
		return model.ScoreRecord{}, fmt.Errorf("storage: latest scorecard: %w", err)
	}
	if len(recs) == 0 {
		return model.ScoreRecord{}, fmt.Errorf("storage: decision %s: %w", decisionID, ErrNotFound)
	}
	return recs[0], nil
}

// ScorecardHistory returns every version of a decision, oldest first.
func (db *DB) ScorecardHistory(ctx context.Context, decisionID uuid.UUID) ([]model.ScoreRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+scorecardColumns+` FROM scorecards
		 WHERE decision_id = $1 ORDER BY version ASC`, decisionID)
	if err != nil {
		return nil, fmt.Errorf("storage: scorecard history: %w", err)
	}
	recs, err := collectScorecards(rows)
	if err != nil {
		return nil, fmt.Errorf("storage: scorecard history: %w", err)
	}
	if len(recs) == 0 {
		return nil, fmt.Errorf("storage: decision %s: %w", decisionID, ErrNotFound)
	}
	return recs, nil
}

// ListLatestScorecards returns the latest version of every decision dated
// within tf. An empty category matches all categories.
func (db *DB) ListLatestScorecards(ctx context.Context, tf model.Timeframe, category string) ([]model.ScoreRecord, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT `+scorecardColumns+` FROM (
			SELECT DISTINCT ON (decision_id) `+scorecardColumns+`
			FROM scorecards
			WHERE decision_date BETWEEN $1 AND $2
			ORDER BY decision_id, version DESC
		 ) latest
		 WHERE $3 = '' OR category = $3
		 ORDER BY decision_date, id`,
		tf.Start, tf.End, category)
	if err != nil {
		return nil, fmt.Errorf("storage: list scorecards: %w", err)
	}
	recs, err := collectScorecards(rows)
	if err != nil {
		return nil, fmt.Errorf("storage: list scorecards: %w", err)
	}
	return recs, nil
}

func collectScorecards(rows pgx.Rows) ([]model.ScoreRecord, error) {
	defer rows.Close()
	var out []model.ScoreRecord
	for rows.Next() {
		var (
			r       model.ScoreRecord
			weakest string
			weights []byte
			ratings [model.NumDimensions]int16
		)
		if err := rows.Scan(
			&r.ID, &r.DecisionID, &r.Version, &r.SupersedesID, &r.Decision, &r.DecisionDate,
			&r.DecisionMaker, &r.Category,
			&ratings[model.DimFraming], &ratings[model.DimAlternatives], &ratings[model.DimInformation],
			&ratings[model.DimValuesTradeoffs], &ratings[model.DimReasoning], &ratings[model.DimCommitment],
			&r.WeightProfile, &weights, &r.Score, &r.Grade, &weakest, &r.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(weights, &r.Weights); err != nil {
			return nil, fmt.Errorf("scorecard %s: decode weights: %w", r.ID, err)
		}
		for i, v := range ratings {
			r.Ratings[i] = int(v)
		}
		d, err := model.ParseDimension(weakest)
		if err != nil {
			return nil, fmt.Errorf("scorecard %s: %w", r.ID, err)
		}
		r.WeakestDimension = d
		r.DecisionDate = r.DecisionDate.UTC()
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// notFound maps pgx.ErrNoRows to ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("storage: %s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("storage: %s: %w", what, err)
}
