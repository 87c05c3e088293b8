package domain

import "errors"

// Sentinel errors for batch fetching
var (
	// ErrSourceUnavailable indicates the item source could not be reached
	ErrSourceUnavailable = errors.New("item source is unreachable")

	// ErrMalformedResponse indicates the source answered with data that could not be decoded
	ErrMalformedResponse = errors.New("malformed response from item source")

	// ErrInvalidRange indicates a negative offset or a non-positive count
	ErrInvalidRange = errors.New("invalid batch range")
)
