package dataset

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/voter-power/internal/models"
)

var testSources = []models.ErrorSource{
	{Name: "statewide", Sigma: 0.05, DegreesOfFreedom: 5, Nodes: 3, Uniform: true},
	{Name: "college", Sigma: 0.03, DegreesOfFreedom: 8, Nodes: 3},
}

func TestLoadRaces(t *testing.T) {
	races, err := LoadRaces("testdata/races.csv", testSources)
	require.NoError(t, err)
	require.Len(t, races, 4)

	uncontested := races[0]
	assert.True(t, uncontested.IsUncontested())
	assert.False(t, uncontested.HasMargin)
	assert.Equal(t, []float64{1, 0}, uncontested.ErrorWeights)

	rated := races[1]
	assert.Equal(t, models.PartyRepublican, rated.Favored)
	assert.Equal(t, models.RatingLean, rated.Confidence)
	assert.False(t, rated.HasMargin)
	require.NotNil(t, rated.FoundationMargin)
	assert.Equal(t, -0.05, *rated.FoundationMargin)
	assert.Equal(t, 38000, rated.Voters)
	assert.Equal(t, []float64{1, 0.21}, rated.ErrorWeights)

	tossUp := races[2]
	assert.Equal(t, models.PartyNone, tossUp.Favored)
	assert.True(t, tossUp.HasMargin)
	assert.Equal(t, 0.01, tossUp.Margin)
	assert.Nil(t, tossUp.FoundationMargin)

	independent := races[3]
	assert.Equal(t, "MI", independent.State)
	assert.Equal(t, models.ChamberUpper, independent.Chamber)
	assert.Equal(t, models.PartyIndependent, independent.Favored)
}

func TestReadRacesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name string
		csv  string
		want error
	}{
		{
			name: "missing source column",
			csv:  "state,district,office,favored,confidence,cvap\nMI,1,lower,D,Lean,100\n",
			want: models.ErrConfiguration,
		},
		{
			name: "unknown chamber",
			csv:  "state,district,office,favored,confidence,cvap,college\nMI,1,house,D,Lean,100,0.2\n",
			want: models.ErrConfiguration,
		},
		{
			name: "unknown rating",
			csv:  "state,district,office,favored,confidence,cvap,college\nMI,1,lower,D,Solid,100,0.2\n",
			want: models.ErrUnknownRating,
		},
		{
			name: "missing weight on contested race",
			csv:  "state,district,office,favored,confidence,cvap,college\nMI,1,lower,D,Lean,100,\n",
			want: models.ErrConfiguration,
		},
		{
			name: "malformed margin",
			csv:  "state,district,office,favored,confidence,margin,cvap,college\nMI,1,lower,D,Lean,abc,100,0.2\n",
			want: models.ErrConfiguration,
		},
		{
			name: "missing state",
			csv:  "state,district,office,favored,confidence,cvap,college\n,1,lower,D,Lean,100,0.2\n",
			want: models.ErrConfiguration,
		},
		{
			name: "missing district",
			csv:  "state,district,office,favored,confidence,cvap,college\nMI,,lower,D,Lean,100,0.2\n",
			want: models.ErrConfiguration,
		},
		{
			name: "margin out of range",
			csv:  "state,district,office,favored,confidence,margin,cvap,college\nMI,1,lower,D,Lean,1.4,100,0.2\n",
			want: models.ErrConfiguration,
		},
		{
			name: "negative voters",
			csv:  "state,district,office,favored,confidence,cvap,college\nMI,1,lower,D,Lean,-20,0.2\n",
			want: models.ErrConfiguration,
		},
		{
			name: "empty file",
			csv:  "",
			want: models.ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadRaces(strings.NewReader(tt.csv), testSources)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoadStates(t *testing.T) {
	states, err := LoadStates("testdata/states.csv")
	require.NoError(t, err)
	require.Len(t, states, 2)

	mi := states[0]
	assert.Equal(t, "MI", mi.State)
	assert.True(t, mi.BothBad)
	assert.True(t, mi.NeitherBad)
	assert.Equal(t, 56, mi.Chambers[models.ChamberLower].SeatThreshold)
	assert.Equal(t, 0.5, mi.Chambers[models.ChamberLower].TieProbability)
	assert.Equal(t, models.ChamberUpper, mi.Chambers[models.ChamberUpper].Chamber)

	ne := states[1]
	assert.Equal(t, "NE", ne.State)
	assert.True(t, ne.Unicameral())
	assert.False(t, ne.BothBad)
	assert.NoError(t, ne.Validate())

	seats, err := LoadCongressionalSeats("testdata/seats.csv")
	require.NoError(t, err)
	ApplySeats(states, seats)
	assert.Equal(t, 13, states[0].CongressionalSeats)
	assert.Equal(t, 3, states[1].CongressionalSeats)
}

func TestReadStatesRejectsConflicts(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{name: "conflicting flags", csv: "state,office,d_threshold,tie_dem,both_bad,neither_bad\nMI,lower,5,0.5,True,True\nMI,upper,3,0.5,False,True\n"},
		{name: "duplicate chamber", csv: "state,office,d_threshold\nMI,lower,5\nMI,lower,6\n"},
		{name: "fractional threshold", csv: "state,office,d_threshold\nMI,lower,5.5\n"},
		{name: "bad flag", csv: "state,office,d_threshold,both_bad\nMI,lower,5,maybe\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadStates(strings.NewReader(tt.csv))
			assert.ErrorIs(t, err, models.ErrConfiguration)
		})
	}
}

func TestLoadCongressionalSeatsMissingFile(t *testing.T) {
	seats, err := LoadCongressionalSeats("testdata/does_not_exist.csv")
	require.NoError(t, err)
	assert.Empty(t, seats)

	seats, err = LoadCongressionalSeats("")
	require.NoError(t, err)
	assert.Empty(t, seats)
}

func sampleResults() []models.StateResult {
	return []models.StateResult{
		{
			State:                 "MI",
			BipartisanProbability: 0.4,
			ChamberProbabilities:  map[models.Chamber]float64{models.ChamberLower: 0.5, models.ChamberUpper: 0.25},
			MetaMargins:           map[models.Chamber]float64{models.ChamberLower: 0.01},
			Races: []models.RacePower{
				{
					Race: models.Race{
						State: "MI", District: "2", Chamber: models.ChamberLower,
						Favored: models.PartyRepublican, Confidence: models.RatingLean,
						Margin: -0.08, Voters: 38000,
					},
					VoterPower:              1.5e-6,
					RedistrictingVoterPower: 1.8e-5,
				},
			},
		},
	}
}

func TestWriteProbabilities(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProbabilities(&buf, sampleResults()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, probabilityHeader, records[0])
	assert.Equal(t, []string{"MI", "0.4", "0.5", "0.25", "0.01", ""}, records[1])
}

func TestWritePowers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "powers.csv")
	require.NoError(t, SaveCSV(path, sampleResults(), WritePowers))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, powerHeader, records[0])
	assert.Equal(t, []string{"MI", "2", "lower", "R", "Lean", "-0.08", "38000", "1.5e-06", "1.8e-05"}, records[1])
}
