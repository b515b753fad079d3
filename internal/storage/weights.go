package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ashita-ai/hyoka/internal/model"
)

// SaveWeightProfile creates or replaces a named weight profile.
func (db *DB) SaveWeightProfile(ctx context.Context, name string, w model.Weights) error {
	b, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("storage: encode weights: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO weight_profiles (name, weights, updated_at) VALUES ($1, $2::jsonb, $3)
		 ON CONFLICT (name) DO UPDATE SET weights = EXCLUDED.weights, updated_at = EXCLUDED.updated_at`,
		name, string(b), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage: save weight profile: %w", err)
	}
	return nil
}

// GetWeightProfile returns a named weight profile.
func (db *DB) GetWeightProfile(ctx context.Context, name string) (model.Weights, error) {
	var b []byte
	err := db.pool.QueryRow(ctx, `SELECT weights FROM weight_profiles WHERE name = $1`, name).Scan(&b)
	if err != nil {
		return model.Weights{}, notFound(err, "weight profile "+name)
	}
	var w model.Weights
	if err := json.Unmarshal(b, &w); err != nil {
		return model.Weights{}, fmt.Errorf("storage: decode weight profile %s: %w", name, err)
	}
	return w, nil
}
