package entity

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// BusinessStatus mirrors the operating state reported by the listing source.
type BusinessStatus string

const (
	StatusOperating         BusinessStatus = "OPERATING"
	StatusClosedTemporarily BusinessStatus = "CLOSED_TEMPORARILY"
	StatusClosedPermanently BusinessStatus = "CLOSED_PERMANENTLY"
)

// ParseBusinessStatus normalises a raw status. Listing exports spell the open
// state "OPERATIONAL"; it is folded into StatusOperating.
func ParseBusinessStatus(raw string) BusinessStatus {
	status := BusinessStatus(strings.ToUpper(strings.TrimSpace(raw)))
	if status == "OPERATIONAL" {
		return StatusOperating
	}
	return status
}

// UnmarshalJSON decodes the status through ParseBusinessStatus.
func (s *BusinessStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseBusinessStatus(raw)
	return nil
}

// Closed reports whether the status marks the place as temporarily or permanently closed.
func (s BusinessStatus) Closed() bool {
	return s == StatusClosedTemporarily || s == StatusClosedPermanently
}

// placeNamespace seeds deterministic identifiers for places that arrive without one.
var placeNamespace = uuid.MustParse("6f1c3a52-2d7e-4b8e-9a51-0c7d2f4e8b10")

// Place is a single listing of the curated dataset. It is never mutated after load.
type Place struct {
	ID               string                  `json:"place_id"`
	Name             string                  `json:"name"`
	Lat              *float64                `json:"lat,omitempty"`
	Lng              *float64                `json:"lng,omitempty"`
	Types            []string                `json:"types"`
	Rating           *float64                `json:"rating,omitempty"`
	ReviewCount      int                     `json:"user_ratings_total"`
	PriceLevel       *int                    `json:"price_level,omitempty"`
	BusinessStatus   BusinessStatus          `json:"business_status,omitempty"`
	OpenNow          *bool                   `json:"open_now,omitempty"`
	Address          string                  `json:"address,omitempty"`
	FormattedAddress string                  `json:"formatted_address,omitempty"`
	Phone            string                  `json:"phone,omitempty"`
	Website          string                  `json:"website,omitempty"`
	MapURL           string                  `json:"google_url,omitempty"`
	EditorialSummary string                  `json:"editorial_summary,omitempty"`
	KnownFor         string                  `json:"known_for,omitempty"`
	Cuisines         []string                `json:"cuisines,omitempty"`
	CostForTwo       *int                    `json:"cost_for_two,omitempty"`
	PhotoURL         *string                 `json:"photo_url,omitempty"`
	OpeningHours     OpeningHours            `json:"opening_hours,omitempty"`
	ExternalSources  []string                `json:"external_sources,omitempty"`
	SecondaryRatings map[string]SourceRating `json:"secondary_ratings,omitempty"`
	Reviews          []Review                `json:"reviews,omitempty"`
}

// Review is a single user review embedded in a place.
type Review struct {
	Author    string  `json:"author"`
	Rating    float64 `json:"rating"`
	Text      string  `json:"text,omitempty"`
	Time      string  `json:"time,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
}

// SourceRating is the rating snippet published by a secondary aggregator.
type SourceRating struct {
	Rating *float64 `json:"rating,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// Populated reports whether the aggregator contributed anything displayable.
func (s SourceRating) Populated() bool {
	return s.Rating != nil || strings.TrimSpace(s.Text) != ""
}

// Location returns the coordinates when both are present.
func (p Place) Location() (lat, lng float64, ok bool) {
	if p.Lat == nil || p.Lng == nil {
		return 0, 0, false
	}
	return *p.Lat, *p.Lng, true
}

// RatingValue returns the rating, treating a missing rating as zero.
func (p Place) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// WithDefaults fills identity fields the source left empty. The receiver is copied.
func (p Place) WithDefaults() Place {
	p.Name = strings.TrimSpace(p.Name)
	if strings.TrimSpace(p.ID) == "" {
		seed := p.Name + "|" + p.Address
		if lat, lng, ok := p.Location(); ok {
			seed += "|" + strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
		}
		p.ID = uuid.NewSHA1(placeNamespace, []byte(seed)).String()
	}
	if p.ReviewCount < 0 {
		p.ReviewCount = 0
	}
	return p
}

// OpeningHours holds one display line per day. Sources publish either a single
// string or a list of strings.
type OpeningHours []string

// UnmarshalJSON accepts a string, a list of strings, or null.
func (h *OpeningHours) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*h = nil
		return nil
	}

	if strings.HasPrefix(trimmed, "\"") {
		var single string
		if err := json.Unmarshal(data, &single); err != nil {
			return err
		}
		*h = SplitOpeningHours(single)
		return nil
	}

	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return err
	}
	*h = compactLines(lines)
	return nil
}

// SplitOpeningHours splits a free-form hours string into display lines.
func SplitOpeningHours(raw string) OpeningHours {
	return compactLines(strings.FieldsFunc(raw, func(r rune) bool { return r == '\n' || r == '|' }))
}

func compactLines(lines []string) OpeningHours {
	out := make(OpeningHours, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
