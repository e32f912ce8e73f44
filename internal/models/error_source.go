package models

import (
	"fmt"
	"math"
)

// ErrorSource is a shared shock applied to every race scaled by its sensitivity
type ErrorSource struct {
	Name             string  `json:"name"`
	Sigma            float64 `json:"sigma"`
	DegreesOfFreedom float64 `json:"deg_f"`
	Nodes            int     `json:"nodes"`
	// Uniform sources weigh every race by 1 (the statewide shift)
	Uniform bool `json:"uniform"`
	// Decay sources fatten their tails with the time left to election day
	Decay bool `json:"decay"`
}

// Validate checks the source parameters
func (s ErrorSource) Validate() error {
	if s.Sigma <= 0 || math.IsNaN(s.Sigma) {
		return fmt.Errorf("%w: error source %q sigma must be positive", ErrConfiguration, s.Name)
	}
	if s.DegreesOfFreedom <= 0 || math.IsNaN(s.DegreesOfFreedom) {
		return fmt.Errorf("%w: error source %q degrees of freedom must be positive", ErrConfiguration, s.Name)
	}
	if s.Nodes < 1 {
		return fmt.Errorf("%w: error source %q needs at least one node", ErrConfiguration, s.Name)
	}
	return nil
}

// ValidateSources checks a source list for correlated integration
func ValidateSources(sources []ErrorSource) error {
	if len(sources) == 0 {
		return fmt.Errorf("%w: no correlated error source configured", ErrConfiguration)
	}
	for _, s := range sources {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	return nil
}
