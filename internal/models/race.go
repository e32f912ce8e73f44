package models

import "fmt"

// Chamber identifies one house of a state legislature
type Chamber string

const (
	ChamberLower Chamber = "lower"
	ChamberUpper Chamber = "upper"
)

// Chambers lists both chambers in evaluation order
var Chambers = [2]Chamber{ChamberLower, ChamberUpper}

// ParseChamber converts an office label into a Chamber
func ParseChamber(s string) (Chamber, error) {
	switch Chamber(s) {
	case ChamberLower, ChamberUpper:
		return Chamber(s), nil
	default:
		return "", fmt.Errorf("%w: unknown chamber %q", ErrConfiguration, s)
	}
}

// Index returns 0 for the lower chamber and 1 for the upper chamber
func (c Chamber) Index() int {
	if c == ChamberUpper {
		return 1
	}
	return 0
}

// Race represents one contested legislative district
type Race struct {
	State            string    `json:"state" validate:"required"`
	District         string    `json:"district" validate:"required"`
	Chamber          Chamber   `json:"chamber" validate:"required,oneof=lower upper"`
	Favored          Party     `json:"favored"`
	Confidence       Rating    `json:"confidence"`
	Margin           float64   `json:"margin" validate:"gte=-1,lte=1"`
	HasMargin        bool      `json:"-"`
	FoundationMargin *float64  `json:"foundation_margin,omitempty"`
	Voters           int       `json:"voters" validate:"gte=0"`
	ErrorWeights     []float64 `json:"error_weights"`
}

// IsUncontested reports whether the race has no meaningful opposition
func (r *Race) IsUncontested() bool {
	return r.Confidence == RatingUncontested
}

// VotePerturbation returns the margin shift produced by one additional vote
func (r *Race) VotePerturbation() float64 {
	if r.Voters <= 0 {
		return 0
	}
	return 1.0 / float64(r.Voters)
}

// Clone returns a deep copy of the race
func (r Race) Clone() Race {
	out := r
	if r.ErrorWeights != nil {
		out.ErrorWeights = append([]float64(nil), r.ErrorWeights...)
	}
	if r.FoundationMargin != nil {
		v := *r.FoundationMargin
		out.FoundationMargin = &v
	}
	return out
}

// RacePower is a race annotated with its voter power
type RacePower struct {
	Race
	VoterPower              float64 `json:"voter_power"`
	RedistrictingVoterPower float64 `json:"redistricting_voter_power"`
}
