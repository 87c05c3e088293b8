// Package synthetic produces sequential integer items after an artificial delay.
package synthetic

import (
	"context"
	"time"

	"github.com/mmcdole/infiniscroll/internal/domain"
)

// DefaultDelay simulates network latency for every batch
const DefaultDelay = 1500 * time.Millisecond

// Generator implements domain.ItemSource without any I/O
type Generator struct {
	delay time.Duration
	limit int // 0 = unbounded
}

// NewGenerator creates a generator. limit <= 0 makes the sequence unbounded.
func NewGenerator(delay time.Duration, limit int) *Generator {
	if delay < 0 {
		delay = 0
	}
	if limit < 0 {
		limit = 0
	}
	return &Generator{delay: delay, limit: limit}
}

// FetchBatch waits for the configured delay and returns offset+1 .. offset+count
func (g *Generator) FetchBatch(ctx context.Context, offset, count int) ([]domain.Item, error) {
	if err := domain.ValidateRange(offset, count); err != nil {
		return nil, err
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return g.numbers(offset, count), nil
}

// Seed returns the first count values immediately, for pre-populating a list
func (g *Generator) Seed(count int) []domain.Item {
	if count <= 0 {
		return nil
	}
	return g.numbers(0, count)
}

func (g *Generator) numbers(offset, count int) []domain.Item {
	end := offset + count
	if g.limit > 0 && end > g.limit {
		end = g.limit
	}
	if end <= offset {
		return []domain.Item{}
	}

	items := make([]domain.Item, 0, end-offset)
	for v := offset + 1; v <= end; v++ {
		items = append(items, domain.Number{Value: v})
	}
	return items
}
