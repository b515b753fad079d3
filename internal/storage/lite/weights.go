package lite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashita-ai/hyoka/internal/model"
)

// SaveWeightProfile creates or replaces a named weight profile.
func (s *Store) SaveWeightProfile(ctx context.Context, name string, w model.Weights) error {
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("lite: encode weights: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO weight_profiles (name, weights, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (name) DO UPDATE SET weights = excluded.weights, updated_at = excluded.updated_at`,
		name, string(b), encodeTime(time.Now()))
	if err != nil {
		return fmt.Errorf("lite: save weight profile: %w", err)
	}
	return nil
}

// GetWeightProfile returns a named weight profile.
func (s *Store) GetWeightProfile(ctx context.Context, name string) (model.Weights, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT weights FROM weight_profiles WHERE name = ?`, name).Scan(&raw)
	if err != nil {
		return model.Weights{}, notFound(err, "weight profile "+name)
	}
	var w model.Weights
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return model.Weights{}, fmt.Errorf("lite: decode weight profile %s: %w", name, err)
	}
	return w, nil
}
