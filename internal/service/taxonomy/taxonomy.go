// Package taxonomy maps raw listing tags onto the fixed category set and the
// display vocabulary derived from it.
package taxonomy

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/octobees/place-intelligence/internal/entity"
)

type group struct {
	category entity.Category
	label    string
	color    string
	tokens   []string
}

// groups is ordered by classification priority: the first group sharing a tag wins.
var groups = []group{
	{
		category: entity.CategoryFood,
		label:    "Food & Drinks",
		color:    "#f97316",
		tokens:   []string{"restaurant", "bar", "cafe", "bakery", "night_club", "meal_takeaway", "meal_delivery", "liquor_store"},
	},
	{
		category: entity.CategoryHealth,
		label:    "Health & Medical",
		color:    "#3b82f6",
		tokens:   []string{"doctor", "hospital", "dentist", "physiotherapist", "pharmacy", "health"},
	},
	{
		category: entity.CategoryBeauty,
		label:    "Beauty & Wellness",
		color:    "#ec4899",
		tokens:   []string{"beauty_salon", "hair_care", "spa", "gym"},
	},
	{
		category: entity.CategoryShopping,
		label:    "Shopping",
		color:    "#8b5cf6",
		tokens:   []string{"store", "clothing_store", "grocery_or_supermarket", "florist", "home_goods_store"},
	},
	{
		category: entity.CategoryServices,
		label:    "Services",
		color:    "#14b8a6",
		tokens:   []string{"school", "lodging", "local_government_office", "storage"},
	},
}

// DefaultCategory is assigned when no tag matches any group.
const DefaultCategory = entity.CategoryServices

// NeutralColor is used for categories outside the palette.
const NeutralColor = "#6b7280"

var typeLabels = map[string]string{
	"restaurant":             "Restaurant",
	"bar":                    "Bar",
	"cafe":                   "Cafe",
	"bakery":                 "Bakery",
	"night_club":             "Nightclub",
	"doctor":                 "Doctor",
	"hospital":               "Hospital",
	"dentist":                "Dentist",
	"physiotherapist":        "Physio",
	"pharmacy":               "Pharmacy",
	"gym":                    "Gym",
	"spa":                    "Spa",
	"beauty_salon":           "Salon",
	"hair_care":              "Salon",
	"store":                  "Shop",
	"clothing_store":         "Clothing",
	"grocery_or_supermarket": "Grocery",
	"florist":                "Florist",
	"liquor_store":           "Liquor",
	"home_goods_store":       "Home Store",
	"school":                 "School",
	"lodging":                "Hotel",
	"meal_takeaway":          "Takeaway",
	"meal_delivery":          "Delivery",
}

// genericTags carry no display information of their own.
var genericTags = map[string]struct{}{
	"point_of_interest": {},
	"establishment":     {},
	"food":              {},
	"health":            {},
}

var gradients = [][2]string{
	{"#f97316", "#eab308"},
	{"#8b5cf6", "#6366f1"},
	{"#ec4899", "#f43f5e"},
	{"#14b8a6", "#06b6d4"},
	{"#3b82f6", "#6366f1"},
	{"#10b981", "#34d399"},
	{"#f59e0b", "#f97316"},
	{"#8b5cf6", "#ec4899"},
}

// Classify returns the category of the first group, in priority order, that
// shares at least one tag with tags. Unknown tags are ignored.
func Classify(tags []string) entity.Category {
	if len(tags) == 0 {
		return DefaultCategory
	}
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[strings.ToLower(strings.TrimSpace(tag))] = struct{}{}
	}
	for _, g := range groups {
		for _, token := range g.tokens {
			if _, ok := set[token]; ok {
				return g.category
			}
		}
	}
	return DefaultCategory
}

// Label returns the human readable label for a category.
func Label(c entity.Category) string {
	for _, g := range groups {
		if g.category == c {
			return g.label
		}
	}
	if c == entity.CategoryAll {
		return "All"
	}
	return Label(DefaultCategory)
}

// Color returns the marker color for a category.
func Color(c entity.Category) string {
	for _, g := range groups {
		if g.category == c {
			return g.color
		}
	}
	return NeutralColor
}

// Categories lists the categories in priority order.
func Categories() []entity.Category {
	out := make([]entity.Category, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.category)
	}
	return out
}

// ParseCategory resolves a category from its name or label, case-insensitively.
// "All" and the empty string resolve to entity.CategoryAll.
func ParseCategory(raw string) (entity.Category, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, string(entity.CategoryAll)) {
		return entity.CategoryAll, true
	}
	for _, g := range groups {
		if strings.EqualFold(raw, string(g.category)) || strings.EqualFold(raw, g.label) {
			return g.category, true
		}
	}
	return "", false
}

// TypeLabel returns the fine-grained display type of a place, e.g. "Cafe".
func TypeLabel(tags []string) string {
	for _, tag := range tags {
		if _, skip := genericTags[tag]; skip {
			continue
		}
		if label, ok := typeLabels[tag]; ok {
			return label
		}
	}
	caser := cases.Title(language.English)
	for _, tag := range tags {
		if _, skip := genericTags[tag]; skip {
			continue
		}
		if words := strings.TrimSpace(strings.ReplaceAll(tag, "_", " ")); words != "" {
			return caser.String(words)
		}
	}
	return "Place"
}

// Gradient picks a stable two-stop card gradient from the place name.
func Gradient(name string) [2]string {
	return gradients[nameHash(name)%int64(len(gradients))]
}

// nameHash is the 31-multiplier rolling hash over UTF-16 code units, wrapped to 32 bits.
func nameHash(s string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// RatingColor returns the traffic-light color for a rating value.
func RatingColor(rating float64) string {
	switch {
	case rating >= 4.5:
		return "#16a34a"
	case rating >= 4:
		return "#65a30d"
	case rating >= 3:
		return "#eab308"
	case rating >= 2:
		return "#f97316"
	default:
		return "#dc2626"
	}
}
