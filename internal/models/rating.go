package models

import (
	"fmt"
	"strings"
)

// Party identifies the party favored in a race
type Party string

const (
	PartyDemocrat    Party = "D"
	PartyRepublican  Party = "R"
	PartyIndependent Party = "I"
	PartyNone        Party = ""
)

// ParseParty normalizes a favored-party label; toss-ups carry no party
func ParseParty(s string) Party {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "D":
		return PartyDemocrat
	case "R":
		return PartyRepublican
	case "I":
		return PartyIndependent
	default:
		return PartyNone
	}
}

// Rating is a forecaster's confidence label for a race
type Rating string

const (
	RatingSafe        Rating = "Safe"
	RatingLikely      Rating = "Likely"
	RatingLean        Rating = "Lean"
	RatingTilt        Rating = "Tilt"
	RatingTossUp      Rating = "Toss-Up"
	RatingUncontested Rating = "Uncontested"
)

// Ratings is the fixed rating vocabulary
var Ratings = []Rating{RatingSafe, RatingLikely, RatingLean, RatingTilt, RatingTossUp, RatingUncontested}

// ParseRating validates a rating label
func ParseRating(s string) (Rating, error) {
	for _, r := range Ratings {
		if strings.EqualFold(string(r), strings.TrimSpace(s)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownRating, s)
}

// RatingMargins maps each rating to the absolute expected margin of the favored party
type RatingMargins map[Rating]float64

// MarginFromRating converts a favored party and rating into a signed margin,
// positive when the tracked (D) party is favored
func (m RatingMargins) MarginFromRating(favored Party, confidence Rating) (float64, error) {
	margin, ok := m[confidence]
	if !ok {
		return 0, fmt.Errorf("%w: %q has no margin", ErrUnknownRating, confidence)
	}
	switch favored {
	case PartyRepublican:
		return -margin, nil
	case PartyIndependent:
		return 0, ErrIndependentFavored
	default:
		return margin, nil
	}
}
