package dto

import "github.com/octobees/place-intelligence/internal/entity"

// StarRating is the five-slot star rendering of a rating.
type StarRating struct {
	Full   int    `json:"full"`
	Half   bool   `json:"half"`
	Empty  int    `json:"empty"`
	Glyphs string `json:"glyphs"`
}

// PlaceCard is the summary shown in grid listings.
type PlaceCard struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Initial         string          `json:"initial"`
	Gradient        [2]string       `json:"gradient"`
	TypeLabel       string          `json:"type_label"`
	Category        entity.Category `json:"category"`
	CategoryLabel   string          `json:"category_label"`
	Rating          *float64        `json:"rating,omitempty"`
	RatingText      string          `json:"rating_text"`
	Stars           StarRating      `json:"stars"`
	ReviewCount     int             `json:"review_count"`
	ReviewCountText string          `json:"review_count_text"`
	Price           string          `json:"price,omitempty"`
	Status          string          `json:"status,omitempty"`
	Address         string          `json:"address,omitempty"`
	HasPhoto        bool            `json:"has_photo"`
}

// HistogramBucket counts the reviews carrying one star value.
type HistogramBucket struct {
	Stars   int     `json:"stars"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// RatingHistogram partitions reviews into the five star buckets, 1 through 5.
type RatingHistogram struct {
	Buckets [5]HistogramBucket `json:"buckets"`
	Max     int                `json:"max"`
	Total   int                `json:"total"`
}

// Counts returns the bucket counts in star order.
func (h RatingHistogram) Counts() [5]int {
	var out [5]int
	for i, b := range h.Buckets {
		out[i] = b.Count
	}
	return out
}

// Percents returns the relative bar widths in star order.
func (h RatingHistogram) Percents() [5]float64 {
	var out [5]float64
	for i, b := range h.Buckets {
		out[i] = b.Percent
	}
	return out
}

// ReviewView is a review prepared for display.
type ReviewView struct {
	Author    string     `json:"author"`
	Rating    float64    `json:"rating"`
	Stars     StarRating `json:"stars"`
	Text      string     `json:"text,omitempty"`
	Time      string     `json:"time,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
}

// SourceCard summarises what one data source says about a place.
type SourceCard struct {
	Source      string   `json:"source"`
	Primary     bool     `json:"primary"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int     `json:"review_count,omitempty"`
	Text        string   `json:"text,omitempty"`
}

// ContactRow is one actionable contact line of the detail view.
type ContactRow struct {
	Kind    string `json:"kind"`
	Display string `json:"display"`
	Link    string `json:"link,omitempty"`
}

// DetailView is the full aggregated view of one place. Optional sections are
// left empty when the place carries no data for them.
type DetailView struct {
	Card         PlaceCard       `json:"card"`
	Summary      string          `json:"summary,omitempty"`
	KnownFor     string          `json:"known_for,omitempty"`
	Cuisines     []string        `json:"cuisines,omitempty"`
	CostForTwo   *int            `json:"cost_for_two,omitempty"`
	OpeningHours []string        `json:"opening_hours,omitempty"`
	Contacts     []ContactRow    `json:"contacts,omitempty"`
	Sources      []SourceCard    `json:"sources"`
	Histogram    RatingHistogram `json:"histogram"`
	Reviews      []ReviewView    `json:"reviews,omitempty"`
}

// LatLng is a geographic position.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Bounds is a latitude/longitude box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLng float64 `json:"min_lng"`
	MaxLat float64 `json:"max_lat"`
	MaxLng float64 `json:"max_lng"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}

// MarkerPayload is the data a map widget shows for a marker before selection.
type MarkerPayload struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Category      entity.Category `json:"category"`
	CategoryLabel string          `json:"category_label"`
	Rating        *float64        `json:"rating,omitempty"`
	ReviewCount   int             `json:"review_count"`
	Tooltip       string          `json:"tooltip"`
	RatingColor   string          `json:"rating_color"`
}

// CanvasPoint is a marker position projected onto the fallback canvas.
type CanvasPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Marker describes one map pin. OnSelect resolves the same detail view the
// card listing uses.
type Marker struct {
	Position  LatLng                    `json:"position"`
	Color     string                    `json:"color"`
	Payload   MarkerPayload             `json:"payload"`
	Canvas    CanvasPoint               `json:"canvas"`
	SelectURL string                    `json:"select_url"`
	OnSelect  func() (DetailView, bool) `json:"-"`
}

// MapView is a marker set plus the viewport needed to frame it.
type MapView struct {
	Markers  []Marker `json:"markers"`
	Bounds   *Bounds  `json:"bounds,omitempty"`
	Center   *LatLng  `json:"center,omitempty"`
	RadiusKm float64  `json:"radius_km"`
	Width    int      `json:"width"`
	Height   int      `json:"height"`
}

// CategoryCount is the number of places in a category.
type CategoryCount struct {
	Category entity.Category `json:"category"`
	Label    string          `json:"label"`
	Count    int             `json:"count"`
}

// Stats summarises the loaded dataset.
type Stats struct {
	Places           int             `json:"places"`
	AverageRating    float64         `json:"average_rating"`
	TotalReviews     int             `json:"total_reviews"`
	TotalReviewsText string          `json:"total_reviews_text"`
	Categories       []CategoryCount `json:"categories"`
}

// Page is one page of the stateless listing.
type Page struct {
	Items    []PlaceCard `json:"items"`
	Page     int         `json:"page"`
	PerPage  int         `json:"per_page"`
	Total    int         `json:"total"`
	LastPage int         `json:"last_page"`
}

// BatchView is one incremental batch of a browsing session.
type BatchView struct {
	SessionID  string      `json:"session_id"`
	Generation uint64      `json:"generation"`
	Items      []PlaceCard `json:"items"`
	Rendered   int         `json:"rendered"`
	Total      int         `json:"total"`
	HasMore    bool        `json:"has_more"`
}

// ResourceHandle identifies a registered deferred resource.
type ResourceHandle struct {
	ResourceID    string `json:"resource_id"`
	PlaceholderID string `json:"placeholder_id"`
}

// ResolvedResource pairs a placeholder with its real location.
type ResolvedResource struct {
	PlaceholderID string `json:"placeholder_id"`
	ResolvedURL   string `json:"resolved_url"`
}
