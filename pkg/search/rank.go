package search

import (
	"slices"
	"sort"
)

// Default post-filter policy applied by callers of Rank.
const (
	DefaultThreshold = 0.2
	DefaultLimit     = 20
)

// Property is one searchable text field of a record. Higher weights make a
// match on this field count for more.
type Property struct {
	Text   string
	Weight float64
}

// Searchable is implemented by records that expose weighted text fields.
type Searchable interface {
	SearchableProperties() []Property
}

// Match points at a ranked record by its index in the slice passed to Rank.
type Match struct {
	Index int
	Score float64
}

// Rank scores every record against query and returns the matching ones,
// best first. Each record keeps its best weighted score across its properties;
// records with no matching property are dropped. Equal scores keep the input
// order. Rank retains no state and never modifies records.
func Rank[T Searchable](query string, records []T) []Match {
	matches := make([]Match, 0, len(records))
	for i, rec := range records {
		if best, ok := bestScore(query, rec.SearchableProperties()); ok {
			matches = append(matches, Match{Index: i, Score: best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score < matches[j].Score
	})
	return matches
}

func bestScore(query string, props []Property) (float64, bool) {
	best, found := 0.0, false
	for _, p := range props {
		if p.Weight <= 0 {
			continue
		}
		raw, ok := Score(query, p.Text)
		if !ok {
			continue
		}
		weighted := raw / p.Weight
		if !found || weighted < best {
			best, found = weighted, true
		}
	}
	return best, found
}

// Truncate drops matches scoring above threshold and keeps at most limit of
// the rest. A non-positive limit means no cap. The input must already be sorted.
func Truncate(matches []Match, threshold float64, limit int) []Match {
	cut := sort.Search(len(matches), func(i int) bool {
		return matches[i].Score > threshold
	})
	out := matches[:cut]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return slices.Clip(out)
}
