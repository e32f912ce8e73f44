package power

import (
	"fmt"
	"math"
	"slices"

	"github.com/yourusername/voter-power/internal/models"
	"github.com/yourusername/voter-power/internal/probability"
)

// Blending mixes a foundation-model margin into the rating margin
type Blending struct {
	Clip           float64
	SafeWeight     float64
	OtherWeight    float64
	ExcludedStates []string
}

// appliesTo reports whether the state takes blended margins
func (b *Blending) appliesTo(state string) bool {
	return b != nil && !slices.Contains(b.ExcludedStates, state)
}

// blend clips the foundation margin around the rating margin and averages them
func (b *Blending) blend(r models.Race) float64 {
	if r.FoundationMargin == nil || math.IsNaN(*r.FoundationMargin) {
		return r.Margin
	}
	found := *r.FoundationMargin
	if b.Clip > 0 {
		found = math.Max(r.Margin-b.Clip, math.Min(r.Margin+b.Clip, found))
	}
	w := b.OtherWeight
	if r.Confidence == models.RatingSafe {
		w = b.SafeWeight
	}
	return w*found + (1-w)*r.Margin
}

// PrepareOptions controls how raw races become engine input
type PrepareOptions struct {
	Sources  []models.ErrorSource
	Ratings  models.RatingMargins
	Blending *Blending
}

// PreparedState is a state's contested races arranged for evaluation
type PreparedState struct {
	State              string
	Races              []models.Race
	Legislature        *probability.Legislature
	CongressionalSeats int

	// refs[i] locates Races[i] as (chamber index, race index) in Legislature
	refs []raceRef
	// Folded counts uncontested or safe independent seats removed per chamber
	Folded map[models.Chamber]int
	// Skipped counts races in chambers that have no configured threshold
	Skipped int
}

type raceRef struct {
	chamber int
	race    int
}

// PrepareState folds decided seats into the thresholds, converts ratings to
// margins and resolves each chamber against its contested seats
func PrepareState(races []models.Race, cfg models.StateConfig, opts PrepareOptions) (*PreparedState, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := models.ValidateSources(opts.Sources); err != nil {
		return nil, err
	}

	chambers := make(map[models.Chamber]models.ChamberConfig, len(cfg.Chambers))
	for c, cc := range cfg.Chambers {
		cc.Chamber = c
		chambers[c] = cc
	}
	folded := make(map[models.Chamber]int, len(chambers))
	skipped := 0

	contested := make(map[models.Chamber][]models.Race, len(chambers))
	for _, race := range races {
		if race.State != cfg.State {
			continue
		}
		cc, ok := chambers[race.Chamber]
		if !ok {
			// chambers without a threshold are not forecast
			skipped++
			continue
		}

		switch {
		case race.Favored == models.PartyIndependent &&
			(race.Confidence == models.RatingSafe || race.Confidence == models.RatingUncontested):
			// an independent joins either coalition with equal chance
			cc.SeatThreshold--
			cc.TieProbability *= 0.5
			folded[race.Chamber]++
		case race.IsUncontested():
			if race.Favored == models.PartyDemocrat {
				cc.SeatThreshold--
			}
			folded[race.Chamber]++
		default:
			prepared, err := prepareRace(race, cfg.State, opts)
			if err != nil {
				return nil, err
			}
			contested[race.Chamber] = append(contested[race.Chamber], prepared)
		}
		chambers[race.Chamber] = cc
	}

	ps := &PreparedState{
		State:              cfg.State,
		Legislature:        &probability.Legislature{Rule: probability.OutcomeRule{BothBad: cfg.BothBad, NeitherBad: cfg.NeitherBad}},
		CongressionalSeats: cfg.CongressionalSeats,
		Folded:             folded,
		Skipped:            skipped,
	}
	for _, c := range models.Chambers {
		cc, ok := chambers[c]
		if !ok {
			continue
		}
		setup, err := probability.ResolveChamber(cc, len(contested[c]))
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", cfg.State, err)
		}
		input := probability.ChamberInput{
			Setup:   setup,
			Margins: make([]float64, 0, len(contested[c])),
			Weights: make([][]float64, 0, len(contested[c])),
		}
		idx := len(ps.Legislature.Chambers)
		for _, race := range contested[c] {
			ps.refs = append(ps.refs, raceRef{chamber: idx, race: len(input.Margins)})
			ps.Races = append(ps.Races, race)
			input.Margins = append(input.Margins, race.Margin)
			input.Weights = append(input.Weights, race.ErrorWeights)
		}
		ps.Legislature.Chambers = append(ps.Legislature.Chambers, input)
	}
	return ps, nil
}

func prepareRace(race models.Race, state string, opts PrepareOptions) (models.Race, error) {
	r := race.Clone()
	if !r.HasMargin {
		margin, err := opts.Ratings.MarginFromRating(r.Favored, r.Confidence)
		if err != nil {
			return models.Race{}, fmt.Errorf("state %s race %s: %w", state, r.District, err)
		}
		r.Margin = margin
		r.HasMargin = true
	}
	if opts.Blending.appliesTo(state) {
		r.Margin = opts.Blending.blend(r)
	}
	if r.Voters <= 0 {
		return models.Race{}, fmt.Errorf("%w: state %s race %s has %d voters",
			models.ErrConfiguration, state, r.District, r.Voters)
	}
	if len(r.ErrorWeights) != len(opts.Sources) {
		return models.Race{}, fmt.Errorf("%w: state %s race %s has %d error weights, %d sources configured",
			models.ErrConfiguration, state, r.District, len(r.ErrorWeights), len(opts.Sources))
	}
	return r, nil
}

// Chamber returns the resolved setup of the chamber holding race i
func (ps *PreparedState) Chamber(i int) probability.ChamberSetup {
	return ps.Legislature.Chambers[ps.refs[i].chamber].Setup
}
