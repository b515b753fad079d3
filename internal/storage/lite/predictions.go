package lite

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/storage"
)

// InsertPrediction stores a resolved prediction.
func (s *Store) InsertPrediction(ctx context.Context, p model.Prediction) error {
	var decisionID uuid.NullUUID
	if p.DecisionID != nil {
		decisionID = uuid.NullUUID{UUID: *p.DecisionID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO predictions (id, statement, confidence, actual, decision_id, prediction_maker, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Statement, p.Confidence, p.Actual, decisionID, p.PredictionMaker, encodeTime(p.RecordedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("lite: insert prediction %s: %w", p.ID, storage.ErrConflict)
		}
		return fmt.Errorf("lite: insert prediction: %w", err)
	}
	return nil
}

// ListPredictions returns predictions matching f in recording order.
func (s *Store) ListPredictions(ctx context.Context, f model.PredictionFilter) ([]model.Prediction, error) {
	var (
		where []string
		args  []any
	)
	if f.PredictionMaker != "" {
		where = append(where, "prediction_maker = ?")
		args = append(args, f.PredictionMaker)
	}
	if f.DecisionID != nil {
		where = append(where, "decision_id = ?")
		args = append(args, *f.DecisionID)
	}
	if !f.Since.IsZero() {
		where = append(where, "recorded_at >= ?")
		args = append(args, encodeTime(f.Since))
	}
	if !f.Until.IsZero() {
		where = append(where, "recorded_at <= ?")
		args = append(args, encodeTime(f.Until))
	}

	query := `SELECT id, statement, confidence, actual, decision_id, prediction_maker, recorded_at FROM predictions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY recorded_at, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lite: list predictions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []model.Prediction
	for rows.Next() {
		var (
			p          model.Prediction
			decisionID uuid.NullUUID
			recorded   string
		)
		if err := rows.Scan(&p.ID, &p.Statement, &p.Confidence, &p.Actual,
			&decisionID, &p.PredictionMaker, &recorded); err != nil {
			return nil, fmt.Errorf("lite: scan prediction: %w", err)
		}
		if decisionID.Valid {
			id := decisionID.UUID
			p.DecisionID = &id
		}
		if p.RecordedAt, err = decodeTime(recorded); err != nil {
			return nil, fmt.Errorf("lite: prediction %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lite: list predictions: %w", err)
	}
	return out, nil
}
