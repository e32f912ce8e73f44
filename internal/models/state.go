package models

import "fmt"

// ChamberConfig holds the seat threshold of the tracked party in one chamber
type ChamberConfig struct {
	Chamber        Chamber `json:"chamber"`
	SeatThreshold  int     `json:"seat_threshold"`
	TieProbability float64 `json:"tie_probability"`
}

// Validate checks the tie probability range
func (c ChamberConfig) Validate() error {
	if c.TieProbability < 0 || c.TieProbability > 1 {
		return fmt.Errorf("%w: %s tie probability %v outside [0,1]", ErrConfiguration, c.Chamber, c.TieProbability)
	}
	return nil
}

// StateConfig is the side-table configuration of one state
type StateConfig struct {
	State              string                    `json:"state"`
	Chambers           map[Chamber]ChamberConfig `json:"chambers"`
	BothBad            bool                      `json:"both_bad"`
	NeitherBad         bool                      `json:"neither_bad"`
	CongressionalSeats int                       `json:"congressional_seats"`
}

// Unicameral reports whether only one chamber is configured
func (s StateConfig) Unicameral() bool {
	return len(s.Chambers) == 1
}

// Validate checks every configured chamber
func (s StateConfig) Validate() error {
	if len(s.Chambers) == 0 {
		return fmt.Errorf("%w: state %s has no chamber configured", ErrConfiguration, s.State)
	}
	for _, c := range s.Chambers {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("state %s: %w", s.State, err)
		}
	}
	return nil
}

// StateResult is the outcome of a per-state computation
type StateResult struct {
	State                 string              `json:"state"`
	BipartisanProbability float64             `json:"bipartisan_prob"`
	ChamberProbabilities  map[Chamber]float64 `json:"chamber_probabilities"`
	MetaMargins           map[Chamber]float64 `json:"meta_margins,omitempty"`
	Races                 []RacePower         `json:"races,omitempty"`
}
