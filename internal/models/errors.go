package models

import "errors"

// Engine errors
var (
	// ErrConfiguration indicates inconsistent input from the data pipeline
	ErrConfiguration = errors.New("configuration error")

	// ErrNumericInstability indicates a probability mass that does not sum to one
	ErrNumericInstability = errors.New("numeric instability")

	// ErrUnknownRating indicates a rating label outside the fixed vocabulary
	ErrUnknownRating = errors.New("unknown rating")

	// ErrIndependentFavored indicates a race favoring an independent that was not folded
	ErrIndependentFavored = errors.New("independent-favored race must be handled before margin conversion")
)
