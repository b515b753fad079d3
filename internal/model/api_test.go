package model_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hyoka/internal/model"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		endOfDay bool
		want     time.Time
	}{
		{"date", "2026-03-01", false, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
		{"date as upper bound", "2026-03-01", true, time.Date(2026, 3, 1, 23, 59, 59, 999999999, time.UTC)},
		{"timestamp normalized to UTC", "2026-03-01T10:30:00+02:00", false, time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)},
		{"timestamp ignores endOfDay", "2026-03-01T10:30:00Z", true, time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)},
		{"surrounding space", " 2026-03-01 ", false, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := model.ParseTime("start", tt.raw, tt.endOfDay)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestParseTimeInvalid(t *testing.T) {
	_, err := model.ParseTime("start", "03/01/2026", false)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "invalid start")

	_, err = model.ParseTime("end", "", true)
	require.ErrorIs(t, err, model.ErrValidation)
	assert.Contains(t, err.Error(), "is required")
}

func TestFieldErrors(t *testing.T) {
	err := fmt.Errorf("score: %w", errors.Join(
		model.Invalid("decision", nil, "must not be empty"),
		&model.ValidationError{Field: "alternatives.name", Index: 2, Reason: "must not be empty"},
	))
	got := model.FieldErrors(err)
	require.Len(t, got, 2)
	assert.Equal(t, "decision", got[0].Field)
	assert.Nil(t, got[0].Index)
	require.NotNil(t, got[1].Index)
	assert.Equal(t, 2, *got[1].Index)

	assert.Empty(t, model.FieldErrors(errors.New("boom")))
}
