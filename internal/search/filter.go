package search

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/mmcdole/infiniscroll/internal/domain"
	sfuzzy "github.com/sahilm/fuzzy"
)

// Match is a filtered item position with the label characters that matched
type Match struct {
	Index          int   // Position in the unfiltered collection
	MatchedIndexes []int // Byte offsets into the label, for highlighting
}

// labelIndex implements sahilm/fuzzy.Source over item labels
type labelIndex struct {
	lower []string
}

func (l labelIndex) String(i int) string { return l.lower[i] }
func (l labelIndex) Len() int            { return len(l.lower) }

// Filter ranks items whose label fuzzily matches query, best match first.
// When nothing matches it falls back to a unicode-folded subsequence match
// (so "cafe" finds "Café"), kept in collection order.
func Filter(items []domain.Item, query string) []Match {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	idx := labelIndex{lower: make([]string, len(items))}
	for i, it := range items {
		idx.lower[i] = strings.ToLower(it.Label())
	}

	found := sfuzzy.FindFrom(strings.ToLower(query), idx)
	if len(found) > 0 {
		matches := make([]Match, len(found))
		for i, m := range found {
			matches[i] = Match{Index: m.Index, MatchedIndexes: m.MatchedIndexes}
		}
		return matches
	}

	var matches []Match
	for i, it := range items {
		if fuzzy.MatchNormalizedFold(query, it.Label()) {
			matches = append(matches, Match{Index: i})
		}
	}
	return matches
}
