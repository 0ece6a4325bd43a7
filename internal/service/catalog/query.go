package catalog

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
)

// Query returns a new slice holding the entries that satisfy every predicate
// of state, ordered by its sort key. Ties keep dataset order.
func (c *Catalog) Query(state dto.QueryState) []Entry {
	term := strings.ToLower(state.SearchTerm)

	out := make([]Entry, 0)
	for _, e := range c.entries {
		if matches(e, state, term) {
			out = append(out, e)
		}
	}

	switch state.Sort {
	case dto.SortByReviewCount:
		slices.SortStableFunc(out, func(a, b Entry) int {
			return cmp.Compare(b.Place.ReviewCount, a.Place.ReviewCount)
		})
	case dto.SortByRating:
		slices.SortStableFunc(out, func(a, b Entry) int {
			return cmp.Compare(b.Place.RatingValue(), a.Place.RatingValue())
		})
	case dto.SortAlphabetical:
		// Collators keep internal buffers, so each query gets its own.
		collator := collate.New(c.locale)
		slices.SortStableFunc(out, func(a, b Entry) int {
			return collator.CompareString(a.Place.Name, b.Place.Name)
		})
	}

	return out
}

func matches(e Entry, state dto.QueryState, term string) bool {
	if state.Category != "" && state.Category != entity.CategoryAll && e.Category != state.Category {
		return false
	}
	if e.Place.RatingValue() < state.MinRating {
		return false
	}
	if state.RequireReviews && len(e.Place.Reviews) == 0 {
		return false
	}
	if term != "" && !strings.Contains(e.SearchBlob, term) {
		return false
	}
	return true
}
