package domain

import "context"

// ItemSource supplies positional batches of items.
// Implementations return an empty slice (not an error) when offset is past the end of the data.
type ItemSource interface {
	FetchBatch(ctx context.Context, offset, count int) ([]Item, error)
}

// ValidateRange checks the arguments of a FetchBatch call
func ValidateRange(offset, count int) error {
	if offset < 0 || count <= 0 {
		return ErrInvalidRange
	}
	return nil
}
