package lite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ashita-ai/hyoka/internal/model"
)

// UpsertOutcome records the outcome of a decision, replacing any earlier one.
func (s *Store) UpsertOutcome(ctx context.Context, o model.DecisionOutcome) error {
	alts := o.Alternatives
	if alts == nil {
		alts = []model.AlternativeEstimate{}
	}
	b, err := json.Marshal(alts)
	if err != nil {
		return fmt.Errorf("lite: encode alternatives: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decision_outcomes (decision_id, chosen, outcome_value, alternatives, recorded_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (decision_id) DO UPDATE
		 SET chosen = excluded.chosen, outcome_value = excluded.outcome_value,
		     alternatives = excluded.alternatives, recorded_at = excluded.recorded_at`,
		o.DecisionID, o.Chosen, o.OutcomeValue, string(b), encodeTime(o.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("lite: upsert outcome: %w", err)
	}
	return nil
}

// GetOutcome returns the recorded outcome of a decision.
func (s *Store) GetOutcome(ctx context.Context, decisionID uuid.UUID) (model.DecisionOutcome, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT decision_id, chosen, outcome_value, alternatives, recorded_at
		 FROM decision_outcomes WHERE decision_id = ?`, decisionID)
	o, err := scanOutcome(row.Scan)
	if err != nil {
		return model.DecisionOutcome{}, notFound(err, "outcome "+decisionID.String())
	}
	return o, nil
}

// ListOutcomes returns the outcomes of decisions dated within tf, keyed by
// decision ID.
func (s *Store) ListOutcomes(ctx context.Context, tf model.Timeframe) (map[uuid.UUID]model.DecisionOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT o.decision_id, o.chosen, o.outcome_value, o.alternatives, o.recorded_at
		 FROM decision_outcomes o
		 JOIN scorecards s ON s.id = o.decision_id
		 WHERE s.decision_date BETWEEN ? AND ?`,
		encodeTime(tf.Start), encodeTime(tf.End))
	if err != nil {
		return nil, fmt.Errorf("lite: list outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[uuid.UUID]model.DecisionOutcome)
	for rows.Next() {
		o, err := scanOutcome(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("lite: scan outcome: %w", err)
		}
		out[o.DecisionID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lite: list outcomes: %w", err)
	}
	return out, nil
}

func scanOutcome(scan func(dest ...any) error) (model.DecisionOutcome, error) {
	var (
		o        model.DecisionOutcome
		alts     string
		recorded string
	)
	if err := scan(&o.DecisionID, &o.Chosen, &o.OutcomeValue, &alts, &recorded); err != nil {
		return model.DecisionOutcome{}, err
	}
	if err := json.Unmarshal([]byte(alts), &o.Alternatives); err != nil {
		return model.DecisionOutcome{}, fmt.Errorf("decode alternatives: %w", err)
	}
	t, err := decodeTime(recorded)
	if err != nil {
		return model.DecisionOutcome{}, err
	}
	o.RecordedAt = t
	return o, nil
}
