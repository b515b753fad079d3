package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/hyoka/internal/model"
	"github.com/ashita-ai/hyoka/internal/service/dqs"
)

func newScoreCommand() *cobra.Command {
	var (
		ratings map[string]int
		weights map[string]string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute a decision quality score offline",
		Long: `Compute the decision quality score of one set of ratings without a
server or a store. Every dimension must be rated 1-10:

  hyoka score --rating framing=8,alternatives=7,information=6,values_tradeoffs=8,reasoning=7,commitment=9

--weight overrides the default weights; all six must be given and sum to 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := model.ParseRatings(ratings)
			if err != nil {
				return &usageError{err: err}
			}
			w := model.DefaultWeights()
			if len(weights) > 0 {
				if w, err = parseWeightFlags(weights); err != nil {
					return &usageError{err: err}
				}
			}

			res, err := dqs.Compute(model.Scorecard{Ratings: r}, w)
			if err != nil {
				return &usageError{err: err}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringToIntVar(&ratings, "rating", nil, "Dimension ratings, e.g. framing=8,alternatives=7")
	cmd.Flags().StringToStringVar(&weights, "weight", nil, "Dimension weights, e.g. framing=0.2,information=0.2")
	_ = cmd.MarkFlagRequired("rating")
	return cmd
}

func parseWeightFlags(raw map[string]string) (model.Weights, error) {
	m := make(map[string]float64, len(raw))
	for name, v := range raw {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.Weights{}, fmt.Errorf("weight %s=%q is not a number", name, v)
		}
		m[name] = f
	}
	return model.ParseWeights(m)
}
