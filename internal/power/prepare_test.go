package power

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/voter-power/internal/dataset"
	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/probability"
)

var testRatings = models.RatingMargins{
	models.RatingSafe:        0.30,
	models.RatingLikely:      0.15,
	models.RatingLean:        0.08,
	models.RatingTilt:        0.03,
	models.RatingTossUp:      0,
	models.RatingUncontested: 1,
}

func TestPrepareStateFoldsUncontestedSeats(t *testing.T) {
	races := []models.Race{
		uncontested("MI", "L1", models.ChamberLower, models.PartyDemocrat),
		uncontested("MI", "L2", models.ChamberLower, models.PartyDemocrat),
		uncontested("MI", "L3", models.ChamberLower, models.PartyRepublican),
		contested("MI", "L4", models.ChamberLower, 0.02, 1000),
		contested("MI", "L5", models.ChamberLower, -0.01, 1000),
		contested("MI", "L6", models.ChamberLower, 0.00, 1000),
		contested("MI", "U1", models.ChamberUpper, 0.04, 2000),
		contested("WI", "L1", models.ChamberLower, 0.10, 1000),
	}
	ps, err := PrepareState(races, bicameral("MI", 4, 1), PrepareOptions{Sources: []models.ErrorSource{statewideSource()}})
	require.NoError(t, err)

	require.Len(t, ps.Legislature.Chambers, 2)
	lower := ps.Legislature.Chambers[0].Setup
	assert.Equal(t, models.ChamberLower, lower.Chamber)
	assert.Equal(t, 2, lower.Threshold)
	assert.Equal(t, 3, lower.Seats)
	assert.Equal(t, probability.Contested, lower.State)
	assert.Equal(t, 3, ps.Folded[models.ChamberLower])

	upper := ps.Legislature.Chambers[1].Setup
	assert.Equal(t, models.ChamberUpper, upper.Chamber)
	assert.Equal(t, 1, upper.Seats)

	require.Len(t, ps.Races, 4)
	for i, district := range []string{"L4", "L5", "L6", "U1"} {
		assert.Equal(t, district, ps.Races[i].District)
	}
	assert.Equal(t, models.ChamberUpper, ps.Chamber(3).Chamber)
	assert.Equal(t, []float64{0.02, -0.01, 0.00}, ps.Legislature.Chambers[0].Margins)
	assert.Equal(t, 5, ps.CongressionalSeats)
}

func TestPrepareStateForcesDecidedChambers(t *testing.T) {
	races := []models.Race{
		uncontested("OH", "L1", models.ChamberLower, models.PartyDemocrat),
		uncontested("OH", "L2", models.ChamberLower, models.PartyDemocrat),
		contested("OH", "L3", models.ChamberLower, 0.01, 1000),
		contested("OH", "U1", models.ChamberUpper, 0.01, 1000),
	}
	ps, err := PrepareState(races, bicameral("OH", 2, 3), PrepareOptions{Sources: []models.ErrorSource{statewideSource()}})
	require.NoError(t, err)

	assert.Equal(t, probability.ForcedWin, ps.Legislature.Chambers[0].Setup.State)
	assert.Equal(t, probability.ForcedLoss, ps.Legislature.Chambers[1].Setup.State)
}

func TestPrepareStateFoldsSafeIndependents(t *testing.T) {
	independent := uncontested("AK", "U1", models.ChamberUpper, models.PartyIndependent)
	independent.Confidence = models.RatingSafe
	races := []models.Race{
		independent,
		contested("AK", "U2", models.ChamberUpper, 0.01, 1000),
		contested("AK", "U3", models.ChamberUpper, 0.01, 1000),
		contested("AK", "U4", models.ChamberUpper, 0.01, 1000),
	}
	cfg := models.StateConfig{
		State:    "AK",
		Chambers: map[models.Chamber]models.ChamberConfig{models.ChamberUpper: {SeatThreshold: 3, TieProbability: 0.5}},
	}
	ps, err := PrepareState(races, cfg, PrepareOptions{Sources: []models.ErrorSource{statewideSource()}})
	require.NoError(t, err)

	require.Len(t, ps.Legislature.Chambers, 1)
	setup := ps.Legislature.Chambers[0].Setup
	assert.Equal(t, 2, setup.Threshold)
	assert.Equal(t, 0.25, setup.Tie)
	assert.Equal(t, 3, setup.Seats)
}

func TestPrepareStateConvertsRatings(t *testing.T) {
	rated := contested("PA", "L1", models.ChamberLower, 0, 1000)
	rated.HasMargin = false
	rated.Favored = models.PartyRepublican
	rated.Confidence = models.RatingLikely

	ps, err := PrepareState([]models.Race{rated}, bicameral("PA", 1, 0), PrepareOptions{
		Sources: []models.ErrorSource{statewideSource()},
		Ratings: testRatings,
	})
	require.NoError(t, err)
	assert.Equal(t, -0.15, ps.Races[0].Margin)
	assert.True(t, ps.Races[0].HasMargin)
	assert.False(t, rated.HasMargin, "input race must not be modified")
}

func TestPrepareStateRejectsContestedIndependent(t *testing.T) {
	rated := contested("ME", "L1", models.ChamberLower, 0, 1000)
	rated.HasMargin = false
	rated.Favored = models.PartyIndependent
	rated.Confidence = models.RatingLean

	_, err := PrepareState([]models.Race{rated}, bicameral("ME", 1, 0), PrepareOptions{
		Sources: []models.ErrorSource{statewideSource()},
		Ratings: testRatings,
	})
	assert.ErrorIs(t, err, models.ErrIndependentFavored)
}

func TestPrepareStateBlendsFoundationMargins(t *testing.T) {
	foundation := 0.5
	race := contested("GA", "L1", models.ChamberLower, 0, 1000)
	race.HasMargin = false
	race.Confidence = models.RatingSafe
	race.FoundationMargin = &foundation

	lean := contested("GA", "L2", models.ChamberLower, 0.02, 1000)
	leanFoundation := 0.0
	lean.FoundationMargin = &leanFoundation

	opts := PrepareOptions{
		Sources: []models.ErrorSource{statewideSource()},
		Ratings: testRatings,
		Blending: &Blending{
			Clip:           0.06,
			SafeWeight:     0.75,
			OtherWeight:    0.5,
			ExcludedStates: []string{"NE", "NC"},
		},
	}
	ps, err := PrepareState([]models.Race{race, lean}, bicameral("GA", 1, 0), opts)
	require.NoError(t, err)
	// foundation clipped to 0.36, then 0.75*0.36 + 0.25*0.30
	assert.InDelta(t, 0.345, ps.Races[0].Margin, 1e-12)
	assert.InDelta(t, 0.01, ps.Races[1].Margin, 1e-12)

	race.State, lean.State = "NC", "NC"
	ps, err = PrepareState([]models.Race{race, lean}, bicameral("NC", 1, 0), opts)
	require.NoError(t, err)
	assert.Equal(t, 0.30, ps.Races[0].Margin)
	assert.Equal(t, 0.02, ps.Races[1].Margin)
}

func TestPrepareStateSkipsChambersWithoutThreshold(t *testing.T) {
	states, err := dataset.ReadStates(strings.NewReader(
		"state,office,d_threshold,tie_dem,both_bad,neither_bad\n" +
			"NH,lower,2,0.5,True,False\n" +
			"NH,upper,,0.5,True,False\n"))
	require.NoError(t, err)
	require.Len(t, states, 1)

	races := []models.Race{
		contested("NH", "L1", models.ChamberLower, 0.02, 1000),
		contested("NH", "L2", models.ChamberLower, -0.01, 1000),
		contested("NH", "L3", models.ChamberLower, 0.01, 1000),
		contested("NH", "U1", models.ChamberUpper, 0.04, 2000),
		uncontested("NH", "U2", models.ChamberUpper, models.PartyDemocrat),
	}
	ps, err := PrepareState(races, states[0], PrepareOptions{Sources: []models.ErrorSource{statewideSource()}})
	require.NoError(t, err)

	assert.Equal(t, 2, ps.Skipped)
	require.Len(t, ps.Legislature.Chambers, 1)
	assert.Equal(t, models.ChamberLower, ps.Legislature.Chambers[0].Setup.Chamber)
	require.Len(t, ps.Races, 3)
	for _, r := range ps.Races {
		assert.Equal(t, models.ChamberLower, r.Chamber)
	}
	assert.Zero(t, ps.Folded[models.ChamberUpper])
}

func TestPrepareStateRejectsInvalidInput(t *testing.T) {
	sources := []models.ErrorSource{statewideSource()}

	tests := []struct {
		name  string
		races []models.Race
		cfg   models.StateConfig
		opts  PrepareOptions
	}{
		{
			name:  "no sources",
			races: []models.Race{contested("VA", "L1", models.ChamberLower, 0.01, 100)},
			cfg:   bicameral("VA", 1, 0),
		},
		{
			name: "weight count mismatch",
			races: func() []models.Race {
				r := contested("VA", "L1", models.ChamberLower, 0.01, 100)
				r.ErrorWeights = []float64{1, 0.5}
				return []models.Race{r}
			}(),
			cfg:  bicameral("VA", 1, 0),
			opts: PrepareOptions{Sources: sources},
		},
		{
			name:  "no voters",
			races: []models.Race{contested("VA", "L1", models.ChamberLower, 0.01, 0)},
			cfg:   bicameral("VA", 1, 0),
			opts:  PrepareOptions{Sources: sources},
		},
		{
			name:  "no chambers",
			races: nil,
			cfg:   models.StateConfig{State: "VA"},
			opts:  PrepareOptions{Sources: sources},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PrepareState(tt.races, tt.cfg, tt.opts)
			assert.ErrorIs(t, err, models.ErrConfiguration)
		})
	}
}
