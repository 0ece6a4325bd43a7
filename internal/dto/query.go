package dto

import "github.com/octobees/place-intelligence/internal/entity"

// SortKey selects the ordering applied to filtered results.
type SortKey string

const (
	SortByReviewCount SortKey = "reviews"
	SortByRating      SortKey = "rating"
	SortAlphabetical  SortKey = "alpha"
)

// Valid reports whether the key is one of the supported orderings.
func (k SortKey) Valid() bool {
	switch k {
	case SortByReviewCount, SortByRating, SortAlphabetical:
		return true
	}
	return false
}

// QueryState is the complete description of a browse query. Equal states over
// the same catalog always yield the same ordered result.
type QueryState struct {
	SearchTerm     string          `json:"q"`
	Category       entity.Category `json:"category"`
	MinRating      float64         `json:"min_rating"`
	Sort           SortKey         `json:"sort"`
	RequireReviews bool            `json:"require_reviews"`
}

// DefaultQueryState matches everything, most reviewed first.
func DefaultQueryState() QueryState {
	return QueryState{Category: entity.CategoryAll, Sort: SortByReviewCount}
}

// QueryRequest is the wire form of a query accepted by session endpoints.
type QueryRequest struct {
	Q              string  `json:"q"`
	Category       string  `json:"category"`
	MinRating      float64 `json:"min_rating"`
	Sort           string  `json:"sort"`
	RequireReviews bool    `json:"require_reviews"`
}

// ListFilter carries a query plus page parameters for the stateless listing endpoint.
type ListFilter struct {
	Query   QueryState
	Page    int
	PerPage int
}

// NextBatchRequest continues the listing of a session.
type NextBatchRequest struct {
	Generation uint64 `json:"generation"`
}

// RegisterResourceRequest asks for a deferred resource to be tracked.
type RegisterResourceRequest struct {
	PlaceID string `json:"place_id"`
}
