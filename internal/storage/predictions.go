package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ashita-ai/hyoka/internal/model"
)

// InsertPrediction stores a resolved prediction.
func (db *DB) InsertPrediction(ctx context.Context, p model.Prediction) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO predictions (id, statement, confidence, actual, decision_id, prediction_maker, recorded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.Statement, p.Confidence, p.Actual, p.DecisionID, p.PredictionMaker, p.RecordedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("storage: insert prediction %s: %w", p.ID, ErrConflict)
		}
		return fmt.Errorf("storage: insert prediction: %w", err)
	}
	return nil
}

// ListPredictions returns predictions matching f in recording order.
func (db *DB) ListPredictions(ctx context.Context, f model.PredictionFilter) ([]model.Prediction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.PredictionMaker != "" {
		where = append(where, "prediction_maker = "+arg(f.PredictionMaker))
	}
	if f.DecisionID != nil {
		where = append(where, "decision_id = "+arg(*f.DecisionID))
	}
	if !f.Since.IsZero() {
		where = append(where, "recorded_at >= "+arg(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "recorded_at <= "+arg(f.Until))
	}

	query := `SELECT id, statement, confidence, actual, decision_id, prediction_maker, recorded_at FROM predictions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at, id"
	if f.Limit > 0 {
		query += " LIMIT " + arg(f.Limit)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list predictions: %w", err)
	}
	defer rows.Close()

	var out []model.Prediction
	for rows.Next() {
		var p model.Prediction
		if err := rows.Scan(&p.ID, &p.Statement, &p.Confidence, &p.Actual,
			&p.DecisionID, &p.PredictionMaker, &p.RecordedAt); err != nil {
			return nil, fmt.Errorf("storage: scan prediction: %w", err)
		}
		p.RecordedAt = p.RecordedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list predictions: %w", err)
	}
	return out, nil
}
