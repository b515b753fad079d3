package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
)

// UpsertOutcome records the outcome of a decision, replacing any earlier one.
func (db *DB) UpsertOutcome(ctx context.Context, o model.DecisionOutcome) error {
	alts, err := json.Marshal(nonNilAlternatives(o.Alternatives))
	if err != nil {
		return fmt.Errorf("storage: encode alternatives: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO decision_outcomes (decision_id, chosen, outcome_value, alternatives, recorded_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)
		 ON CONFLICT (decision_id) DO UPDATE
		 SET chosen = EXCLUDED.chosen, outcome_value = EXCLUDED.outcome_value,
		     alternatives = EXCLUDED.alternatives, recorded_at = EXCLUDED.recorded_at`,
		o.DecisionID, o.Chosen, o.OutcomeValue, string(alts), o.RecordedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert outcome: %w", err)
	}
	return nil
}

// GetOutcome returns the recorded outcome of a decision.
func (db *DB) GetOutcome(ctx context.Context, decisionID uuid.UUID) (model.DecisionOutcome, error) {
	var (
		o    model.DecisionOutcome
		alts []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT decision_id, chosen, outcome_value, alternatives, recorded_at
		 FROM decision_outcomes WHERE decision_id = $1`, decisionID,
	).Scan(&o.DecisionID, &o.Chosen, &o.OutcomeValue, &alts, &o.RecordedAt)
	if err != nil {
		return model.DecisionOutcome{}, notFound(err, "outcome "+decisionID.String())
	}
	if err := json.Unmarshal(alts, &o.Alternatives); err != nil {
		return model.DecisionOutcome{}, fmt.Errorf("storage: decode alternatives: %w", err)
	}
	o.RecordedAt = o.RecordedAt.UTC()
	return o, nil
}

// ListOutcomes returns the outcomes of decisions dated within tf, keyed by
// decision ID.
func (db *DB) ListOutcomes(ctx context.Context, tf model.Timeframe) (map[uuid.UUID]model.DecisionOutcome, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT o.decision_id, o.chosen, o.outcome_value, o.alternatives, o.recorded_at
		 FROM decision_outcomes o
		 JOIN scorecards s ON s.id = o.decision_id
		 WHERE s.decision_date BETWEEN $1 AND $2`,
		tf.Start, tf.End)
	if err != nil {
		return nil, fmt.Errorf("storage: list outcomes: %w", err)
	}
	defer rows.Close()

	out := make(map[uuid.UUID]model.DecisionOutcome)
	for rows.Next() {
		var (
			o    model.DecisionOutcome
			alts []byte
		)
		if err := rows.Scan(&o.DecisionID, &o.Chosen, &o.OutcomeValue, &alts, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("storage: scan outcome: %w", err)
		}
		if err := json.Unmarshal(alts, &o.Alternatives); err != nil {
			return nil, fmt.Errorf("storage: decode alternatives: %w", err)
		}
		o.RecordedAt = o.RecordedAt.UTC()
		out[o.DecisionID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list outcomes: %w", err)
	}
	return out, nil
}

func nonNilAlternatives(a []model.AlternativeEstimate) []model.AlternativeEstimate {
	if a == nil {
		return []model.AlternativeEstimate{}
	}
	return a
}
