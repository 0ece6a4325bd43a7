// Package detail assembles the per-place views shown in listings and in the
// detail panel.
package detail

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/taxonomy"
)

// DefaultHalfStarThreshold is the fractional part from which a half star is drawn.
const DefaultHalfStarThreshold = 0.25

// PrimarySource names the listing source the dataset was scraped from.
const PrimarySource = "google"

// Aggregator builds display views. It holds no per-place state and is safe
// for concurrent use.
type Aggregator struct {
	halfStarThreshold float64
	phoneRegion       string
	locale            language.Tag
}

// Option customises an Aggregator.
type Option func(*Aggregator)

// WithHalfStarThreshold overrides the half-star threshold. Values outside (0, 1) are ignored.
func WithHalfStarThreshold(threshold float64) Option {
	return func(a *Aggregator) {
		if threshold > 0 && threshold < 1 {
			a.halfStarThreshold = threshold
		}
	}
}

// WithPhoneRegion sets the region used to interpret phone numbers without a country code.
func WithPhoneRegion(region string) Option {
	return func(a *Aggregator) {
		if region = strings.ToUpper(strings.TrimSpace(region)); region != "" {
			a.phoneRegion = region
		}
	}
}

// WithLocale sets the locale used for number formatting.
func WithLocale(tag language.Tag) Option {
	return func(a *Aggregator) {
		a.locale = tag
	}
}

// NewAggregator creates an Aggregator with the given options applied.
func NewAggregator(opts ...Option) *Aggregator {
	a := &Aggregator{
		halfStarThreshold: DefaultHalfStarThreshold,
		phoneRegion:       defaultPhoneRegion,
		locale:            language.English,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// HalfStarThreshold returns the configured threshold.
func (a *Aggregator) HalfStarThreshold() float64 {
	return a.halfStarThreshold
}

// Summarize builds the listing card of an entry.
func (a *Aggregator) Summarize(e catalog.Entry) dto.PlaceCard {
	p := e.Place
	initial, _ := utf8.DecodeRuneInString(p.Name)

	card := dto.PlaceCard{
		ID:              p.ID,
		Name:            p.Name,
		Gradient:        taxonomy.Gradient(p.Name),
		TypeLabel:       e.TypeLabel,
		Category:        e.Category,
		CategoryLabel:   taxonomy.Label(e.Category),
		Rating:          p.Rating,
		RatingText:      ratingText(p.Rating),
		Stars:           Stars(p.RatingValue(), a.halfStarThreshold),
		ReviewCount:     p.ReviewCount,
		ReviewCountText: message.NewPrinter(a.locale).Sprintf("%d", p.ReviewCount),
		Price:           PriceLabel(p.PriceLevel),
		Status:          StatusBadge(p),
		Address:         strings.TrimSpace(p.Address),
		HasPhoto:        p.PhotoURL != nil && strings.TrimSpace(*p.PhotoURL) != "",
	}
	if initial != utf8.RuneError {
		card.Initial = strings.ToUpper(string(initial))
	}
	return card
}

// Aggregate builds the full detail view of an entry.
func (a *Aggregator) Aggregate(e catalog.Entry) dto.DetailView {
	p := e.Place

	view := dto.DetailView{
		Card:       a.Summarize(e),
		Summary:    e.Summary,
		KnownFor:   strings.TrimSpace(p.KnownFor),
		CostForTwo: p.CostForTwo,
		Contacts:   a.contactRows(p),
		Sources:    SourceCards(p),
		Histogram:  Histogram(p.Reviews),
	}
	if len(p.Cuisines) > 0 {
		view.Cuisines = slices.Clone(p.Cuisines)
	}
	if len(p.OpeningHours) > 0 {
		view.OpeningHours = slices.Clone([]string(p.OpeningHours))
	}

	reviews := SortReviews(p.Reviews)
	if len(reviews) > 0 {
		view.Reviews = make([]dto.ReviewView, 0, len(reviews))
		for _, r := range reviews {
			view.Reviews = append(view.Reviews, dto.ReviewView{
				Author:    r.Author,
				Rating:    r.Rating,
				Stars:     Stars(r.Rating, a.halfStarThreshold),
				Text:      r.Text,
				Time:      r.Time,
				AvatarURL: r.AvatarURL,
			})
		}
	}

	return view
}

// Histogram counts reviews per star value. Ratings outside [1, 5] are ignored;
// fractional ratings fall into the bucket of their integer part.
func Histogram(reviews []entity.Review) dto.RatingHistogram {
	var h dto.RatingHistogram
	for i := range h.Buckets {
		h.Buckets[i].Stars = i + 1
	}

	for _, r := range reviews {
		if !(r.Rating >= 1 && r.Rating <= 5) {
			continue
		}
		h.Buckets[int(math.Floor(r.Rating))-1].Count++
		h.Total++
	}

	for _, b := range h.Buckets {
		h.Max = max(h.Max, b.Count)
	}
	denominator := float64(max(h.Max, 1))
	for i := range h.Buckets {
		h.Buckets[i].Percent = float64(h.Buckets[i].Count) / denominator * 100
	}

	return h
}

// SortReviews returns a copy of reviews ordered by rating, highest first.
// Equal ratings keep their original order.
func SortReviews(reviews []entity.Review) []entity.Review {
	out := slices.Clone(reviews)
	slices.SortStableFunc(out, func(a, b entity.Review) int {
		return cmp.Compare(b.Rating, a.Rating)
	})
	return out
}

// SourceCards lists the primary source first, then secondary aggregators by
// key, then badge-only external sources not already covered.
func SourceCards(p entity.Place) []dto.SourceCard {
	reviewCount := p.ReviewCount
	cards := []dto.SourceCard{{
		Source:      PrimarySource,
		Primary:     true,
		Rating:      p.Rating,
		ReviewCount: &reviewCount,
	}}
	seen := map[string]struct{}{PrimarySource: {}}

	keys := make([]string, 0, len(p.SecondaryRatings))
	for key, rating := range p.SecondaryRatings {
		if rating.Populated() {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	for _, key := range keys {
		normalized := strings.ToLower(strings.TrimSpace(key))
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		rating := p.SecondaryRatings[key]
		cards = append(cards, dto.SourceCard{
			Source: key,
			Rating: rating.Rating,
			Text:   strings.TrimSpace(rating.Text),
		})
	}

	for _, name := range p.ExternalSources {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, dup := seen[normalized]; dup {
			continue
		}
		seen[normalized] = struct{}{}
		cards = append(cards, dto.SourceCard{Source: strings.TrimSpace(name)})
	}

	return cards
}

// Stars splits a rating into full, half and empty slots out of five.
func Stars(rating, halfThreshold float64) dto.StarRating {
	rating = math.Max(0, math.Min(5, rating))
	if math.IsNaN(rating) {
		rating = 0
	}
	full := int(math.Floor(rating))
	half := full < 5 && rating-float64(full) >= halfThreshold

	s := dto.StarRating{Full: full, Half: half, Empty: 5 - full}
	if half {
		s.Empty--
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("★", full))
	if half {
		b.WriteString("⯪")
	}
	b.WriteString(strings.Repeat("☆", s.Empty))
	s.Glyphs = b.String()
	return s
}

// PriceLabel renders a price level as repeated currency symbols.
func PriceLabel(level *int) string {
	if level == nil || *level <= 0 {
		return ""
	}
	return strings.Repeat("$", min(*level, 4))
}

// StatusBadge returns "Closed", "Open", or "" when nothing is known.
func StatusBadge(p entity.Place) string {
	if p.BusinessStatus.Closed() {
		return "Closed"
	}
	if p.OpenNow == nil {
		return ""
	}
	if *p.OpenNow {
		return "Open"
	}
	return "Closed"
}

func ratingText(rating *float64) string {
	if rating == nil {
		return "N/A"
	}
	return strconv.FormatFloat(*rating, 'f', -1, 64)
}
