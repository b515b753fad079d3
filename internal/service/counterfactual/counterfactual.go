// Package counterfactual scores regret: how far each unchosen alternative's
// estimated outcome falls short of the best achievable outcome.
//
// Estimates are supplied by the caller; nothing here predicts outcomes.
//
//	best   = max(outcome, max(alt))
//	range  = best - min(outcome, min(alt))
//	regret = max(0, (best - alt) / range), or 0 when range == 0
package counterfactual

import (
	"math"

	"github.com/ashita-ai/hyoka/internal/model"
)

// Assessment is the regret picture for one decision, including the chosen option.
type Assessment struct {
	Chosen       string         `json:"chosen"`
	OutcomeValue float64        `json:"outcome_value"`
	ChosenRegret float64        `json:"chosen_regret"`
	BestOption   string         `json:"best_option"`
	BestOutcome  float64        `json:"best_outcome"`
	Optimal      bool           `json:"optimal"`
	Alternatives []model.Regret `json:"alternatives"`
}

// Evaluate returns one Regret per alternative, in input order. An empty
// alternatives list yields an empty, non-nil result.
func Evaluate(chosen string, outcomeValue float64, alternatives []model.AlternativeEstimate) ([]model.Regret, error) {
	a, err := Assess(model.DecisionOutcome{
		Chosen:       chosen,
		OutcomeValue: outcomeValue,
		Alternatives: alternatives,
	})
	if err != nil {
		return nil, err
	}
	return a.Alternatives, nil
}

// Assess validates o and scores the chosen option and every alternative.
// When the chosen outcome ties the best estimate the chosen option is
// reported as the best and optimal.
func Assess(o model.DecisionOutcome) (Assessment, error) {
	if err := o.Validate(); err != nil {
		return Assessment{}, err
	}

	best, worst := o.OutcomeValue, o.OutcomeValue
	bestName := o.Chosen
	for _, alt := range o.Alternatives {
		if alt.EstimatedOutcome > best {
			best = alt.EstimatedOutcome
			bestName = alt.Name
		}
		worst = math.Min(worst, alt.EstimatedOutcome)
	}
	// Scale by 1/2 so finite extremes cannot overflow the difference.
	span := best/2 - worst/2

	regrets := make([]model.Regret, len(o.Alternatives))
	for i, alt := range o.Alternatives {
		regrets[i] = model.Regret{
			Name:             alt.Name,
			EstimatedOutcome: alt.EstimatedOutcome,
			RegretScore:      regret(best, alt.EstimatedOutcome, span),
		}
	}

	return Assessment{
		Chosen:       o.Chosen,
		OutcomeValue: o.OutcomeValue,
		ChosenRegret: regret(best, o.OutcomeValue, span),
		BestOption:   bestName,
		BestOutcome:  best,
		Optimal:      o.OutcomeValue >= best,
		Alternatives: regrets,
	}, nil
}

func regret(best, value, span float64) float64 {
	if span == 0 {
		return 0
	}
	r := (best/2 - value/2) / span
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	}
	return r
}
