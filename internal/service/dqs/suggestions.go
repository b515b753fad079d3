package dqs

import "github.com/ashita-ai/hyoka/internal/model"

// suggestions is presentation text only; the scoring code never reads it.
var suggestions = [model.NumDimensions]string{
	model.DimFraming:         "Restate the decision problem and its scope before evaluating options; confirm you are solving the right problem.",
	model.DimAlternatives:    "Generate at least one more genuinely different option, including doing nothing, before committing.",
	model.DimInformation:     "Identify the key uncertainty and gather the evidence that would most change the choice.",
	model.DimValuesTradeoffs: "Write down what you are optimizing for and which trade-offs you accept between competing objectives.",
	model.DimReasoning:       "Walk through the causal logic from evidence to choice and test it against the strongest counter-argument.",
	model.DimCommitment:      "Define owners, next steps, and the signals that would trigger revisiting the decision.",
}

// Suggestion returns the improvement suggestion for the weakest dimension.
func Suggestion(d model.Dimension) string {
	if !d.Valid() {
		return ""
	}
	return suggestions[d]
}
