package search

import (
	"testing"

	"github.com/mmcdole/infiniscroll/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func photos(titles ...string) []domain.Item {
	items := make([]domain.Item, len(titles))
	for i, title := range titles {
		items[i] = domain.Photo{ID: i + 1, Title: title}
	}
	return items
}

func TestFilter_Empty(t *testing.T) {
	assert.Nil(t, Filter(photos("a", "b"), "   "))
}

func TestFilter_RanksMatches(t *testing.T) {
	items := photos(
		"officia porro iure quia iusto qui ipsa ut modi",
		"accusamus beatae ad facilis cum similique qui sunt",
		"reprehenderit est deserunt velit ipsam",
	)

	matches := Filter(items, "BEATAE")
	require.Len(t, matches, 1)
	assert.Equal(t, 1, matches[0].Index)
	assert.NotEmpty(t, matches[0].MatchedIndexes)
}

func TestFilter_NoMatch(t *testing.T) {
	assert.Empty(t, Filter(photos("alpha", "beta"), "zzz"))
}

func TestFilter_FoldedFallback(t *testing.T) {
	items := photos("Crème brûlée", "plain text")

	matches := Filter(items, "creme")
	require.Len(t, matches, 1)
	assert.Equal(t, 0, matches[0].Index)
	assert.Nil(t, matches[0].MatchedIndexes)
}

func TestFilter_Numbers(t *testing.T) {
	items := []domain.Item{domain.Number{Value: 7}, domain.Number{Value: 17}, domain.Number{Value: 20}}

	matches := Filter(items, "7")
	require.Len(t, matches, 2)
	indexes := []int{matches[0].Index, matches[1].Index}
	assert.ElementsMatch(t, []int{0, 1}, indexes)
}
