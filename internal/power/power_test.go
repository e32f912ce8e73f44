package power

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/probability"
)

func statewideSource() models.ErrorSource {
	return models.ErrorSource{Name: "statewide", Sigma: 0.03, DegreesOfFreedom: 5, Nodes: 5, Uniform: true}
}

func testEvaluator(t *testing.T, sources ...models.ErrorSource) *probability.Evaluator {
	t.Helper()
	model, err := probability.NewWinModel(0.07, 5, nil)
	require.NoError(t, err)
	in, err := probability.NewIntegrator(model, sources, 0)
	require.NoError(t, err)
	return probability.NewEvaluator(in)
}

func contested(state, district string, chamber models.Chamber, margin float64, voters int) models.Race {
	return models.Race{
		State:        state,
		District:     district,
		Chamber:      chamber,
		Favored:      models.PartyDemocrat,
		Confidence:   models.RatingLean,
		Margin:       margin,
		HasMargin:    true,
		Voters:       voters,
		ErrorWeights: []float64{1},
	}
}

func uncontested(state, district string, chamber models.Chamber, party models.Party) models.Race {
	return models.Race{
		State:      state,
		District:   district,
		Chamber:    chamber,
		Favored:    party,
		Confidence: models.RatingUncontested,
		Voters:     1000,
	}
}

func bicameral(state string, lower, upper int) models.StateConfig {
	return models.StateConfig{
		State: state,
		Chambers: map[models.Chamber]models.ChamberConfig{
			models.ChamberLower: {SeatThreshold: lower, TieProbability: 0.5},
			models.ChamberUpper: {SeatThreshold: upper, TieProbability: 0.5},
		},
		BothBad:            true,
		NeitherBad:         true,
		CongressionalSeats: 5,
	}
}
