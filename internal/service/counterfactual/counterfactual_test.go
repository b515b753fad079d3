package counterfactual_test

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/counterfactual"
)

func alts(pairs ...any) []model.AlternativeEstimate {
	var out []model.AlternativeEstimate
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, model.AlternativeEstimate{Name: pairs[i].(string), EstimatedOutcome: pairs[i+1].(float64)})
	}
	return out
}

func TestEvaluate_NormalizesAgainstRange(t *testing.T) {
	got, err := counterfactual.Evaluate("postgres", 60, alts("mysql", 100.0, "sqlite", 20.0, "dynamo", 80.0))
	require.NoError(t, err)
	require.Len(t, got, 3)

	// best=100, range=100-20=80
	assert.Equal(t, "mysql", got[0].Name)
	assert.InDelta(t, 0.0, got[0].RegretScore, 1e-12)
	assert.Equal(t, "sqlite", got[1].Name)
	assert.InDelta(t, 1.0, got[1].RegretScore, 1e-12)
	assert.Equal(t, "dynamo", got[2].Name)
	assert.InDelta(t, 0.25, got[2].RegretScore, 1e-12)
}

func TestEvaluate_EmptyAlternatives(t *testing.T) {
	got, err := counterfactual.Evaluate("only-option", 42, nil)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestEvaluate_IdenticalOutcomesHaveNoRegret(t *testing.T) {
	got, err := counterfactual.Evaluate("a", 5, alts("b", 5.0, "c", 5.0))
	require.NoError(t, err)
	for _, r := range got {
		assert.Equal(t, 0.0, r.RegretScore)
	}
}

func TestAssess_TieFavorsChosen(t *testing.T) {
	a, err := counterfactual.Assess(model.DecisionOutcome{
		Chosen:       "ship-now",
		OutcomeValue: 10,
		Alternatives: alts("delay", 10.0, "cancel", 0.0),
	})
	require.NoError(t, err)
	assert.True(t, a.Optimal)
	assert.Equal(t, "ship-now", a.BestOption)
	assert.Equal(t, 0.0, a.ChosenRegret)
	assert.Equal(t, 0.0, a.Alternatives[0].RegretScore, "tied alternative carries no regret")
	assert.Equal(t, 1.0, a.Alternatives[1].RegretScore)
}

func TestAssess_SuboptimalChoice(t *testing.T) {
	a, err := counterfactual.Assess(model.DecisionOutcome{
		Chosen:       "vendor-a",
		OutcomeValue: -5,
		Alternatives: alts("vendor-b", 15.0),
	})
	require.NoError(t, err)
	assert.False(t, a.Optimal)
	assert.Equal(t, "vendor-b", a.BestOption)
	assert.Equal(t, 1.0, a.ChosenRegret)
	assert.Equal(t, 0.0, a.Alternatives[0].RegretScore)
}

func TestEvaluate_Validation(t *testing.T) {
	tests := []struct {
		name   string
		chosen string
		value  float64
		alts   []model.AlternativeEstimate
		field  string
	}{
		{"chosen among alternatives", "a", 1, alts("b", 2.0, "a", 3.0), "alternatives.name"},
		{"empty chosen", " ", 1, alts("b", 2.0), "chosen"},
		{"empty alternative name", "a", 1, alts("", 2.0), "alternatives.name"},
		{"duplicate alternative", "a", 1, alts("b", 2.0, "b", 3.0), "alternatives.name"},
		{"nan outcome", "a", math.NaN(), alts("b", 2.0), "outcome_value"},
		{"infinite estimate", "a", 1, alts("b", math.Inf(1)), "alternatives.estimated_outcome"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := counterfactual.Evaluate(tt.chosen, tt.value, tt.alts)
			require.ErrorIs(t, err, model.ErrValidation)
			errs := model.ValidationErrors(err)
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestEvaluate_ChosenInAlternativesReportsIndex(t *testing.T) {
	_, err := counterfactual.Evaluate("a", 1, alts("b", 2.0, "a", 3.0))
	errs := model.ValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Index)
}

func TestEvaluate_RegretBoundsProperty(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	names := []string{"a", "b", "c", "d", "e", "f"}
	for trial := range 300 {
		n := 1 + rng.IntN(len(names)-1)
		value := rng.NormFloat64() * 100
		var in []model.AlternativeEstimate
		for i := range n {
			in = append(in, model.AlternativeEstimate{Name: names[i+1], EstimatedOutcome: rng.NormFloat64() * 100})
		}
		a, err := counterfactual.Assess(model.DecisionOutcome{Chosen: names[0], OutcomeValue: value, Alternatives: in})
		require.NoError(t, err)

		best := value
		for _, alt := range in {
			best = math.Max(best, alt.EstimatedOutcome)
		}
		for i, r := range a.Alternatives {
			assert.Equal(t, in[i].Name, r.Name, "order is preserved")
			assert.GreaterOrEqual(t, r.RegretScore, 0.0)
			assert.LessOrEqual(t, r.RegretScore, 1.0)
			if r.EstimatedOutcome == best {
				assert.Equal(t, 0.0, r.RegretScore, "trial %d", trial)
			}
		}
		if value == best {
			assert.Equal(t, 0.0, a.ChosenRegret)
		}
	}
}

func TestEvaluate_ExtremeMagnitudes(t *testing.T) {
	got, err := counterfactual.Evaluate("a", -math.MaxFloat64, alts("b", math.MaxFloat64, "c", 0.0))
	require.NoError(t, err)
	assert.Equal(t, 0.0, got[0].RegretScore)
	assert.InDelta(t, 0.5, got[1].RegretScore, 1e-12)
}
