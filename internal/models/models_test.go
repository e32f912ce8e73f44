package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMargins = RatingMargins{
	RatingSafe: 0.30, RatingLikely: 0.15, RatingLean: 0.08,
	RatingTilt: 0.03, RatingTossUp: 0, RatingUncontested: 1,
}

func TestParseRating(t *testing.T) {
	r, err := ParseRating(" toss-up ")
	require.NoError(t, err)
	assert.Equal(t, RatingTossUp, r)

	_, err = ParseRating("Solid")
	assert.ErrorIs(t, err, ErrUnknownRating)
}

func TestParseParty(t *testing.T) {
	assert.Equal(t, PartyDemocrat, ParseParty("d"))
	assert.Equal(t, PartyRepublican, ParseParty(" R"))
	assert.Equal(t, PartyIndependent, ParseParty("I"))
	assert.Equal(t, PartyNone, ParseParty(""))
	assert.Equal(t, PartyNone, ParseParty("Green"))
}

func TestMarginFromRating(t *testing.T) {
	tests := []struct {
		favored Party
		rating  Rating
		want    float64
	}{
		{PartyDemocrat, RatingLean, 0.08},
		{PartyRepublican, RatingLikely, -0.15},
		{PartyNone, RatingTossUp, 0},
		{PartyRepublican, RatingUncontested, -1},
	}
	for _, tt := range tests {
		got, err := testMargins.MarginFromRating(tt.favored, tt.rating)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s %s", tt.favored, tt.rating)
	}

	_, err := testMargins.MarginFromRating(PartyIndependent, RatingSafe)
	assert.ErrorIs(t, err, ErrIndependentFavored)

	_, err = RatingMargins{}.MarginFromRating(PartyDemocrat, RatingSafe)
	assert.ErrorIs(t, err, ErrUnknownRating)
}

func TestParseChamber(t *testing.T) {
	c, err := ParseChamber("upper")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Index())
	assert.Equal(t, 0, ChamberLower.Index())

	_, err = ParseChamber("senate")
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestRaceCloneIsDeep(t *testing.T) {
	fm := 0.02
	r := Race{ErrorWeights: []float64{1, 0.5}, FoundationMargin: &fm, Voters: 4000}
	c := r.Clone()
	c.ErrorWeights[0] = 9
	*c.FoundationMargin = 9

	assert.Equal(t, 1.0, r.ErrorWeights[0])
	assert.Equal(t, 0.02, *r.FoundationMargin)
	assert.Equal(t, 0.00025, r.VotePerturbation())
	assert.Zero(t, (&Race{}).VotePerturbation())
}

func TestErrorSourceValidation(t *testing.T) {
	valid := ErrorSource{Name: "statewide", Sigma: 0.05, DegreesOfFreedom: 5, Nodes: 3}
	require.NoError(t, ValidateSources([]ErrorSource{valid}))
	assert.ErrorIs(t, ValidateSources(nil), ErrConfiguration)

	for _, mutate := range []func(*ErrorSource){
		func(s *ErrorSource) { s.Sigma = 0 },
		func(s *ErrorSource) { s.Sigma = math.NaN() },
		func(s *ErrorSource) { s.DegreesOfFreedom = -1 },
		func(s *ErrorSource) { s.Nodes = 0 },
	} {
		s := valid
		mutate(&s)
		assert.ErrorIs(t, s.Validate(), ErrConfiguration)
	}
}

func TestStateConfigValidation(t *testing.T) {
	s := StateConfig{
		State: "MN",
		Chambers: map[Chamber]ChamberConfig{
			ChamberLower: {Chamber: ChamberLower, SeatThreshold: 68, TieProbability: 0.5},
		},
	}
	require.NoError(t, s.Validate())
	assert.True(t, s.Unicameral())

	s.Chambers[ChamberUpper] = ChamberConfig{Chamber: ChamberUpper, TieProbability: 1.5}
	assert.ErrorIs(t, s.Validate(), ErrConfiguration)
	assert.False(t, s.Unicameral())

	assert.ErrorIs(t, StateConfig{State: "XX"}.Validate(), ErrConfiguration)
}
