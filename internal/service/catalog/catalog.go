// Package catalog holds the enriched, read-only place collection and the
// query engine that filters and orders it.
package catalog

import (
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/language"

	"github.com/octobees/place-intelligence/internal/entity"
	"github.com/octobees/place-intelligence/internal/service/taxonomy"
)

// Entry is a place plus the attributes derived from it at load time.
type Entry struct {
	Place      entity.Place
	Category   entity.Category
	TypeLabel  string
	Summary    string
	SearchBlob string
}

// Catalog is immutable once built and safe for concurrent readers.
type Catalog struct {
	entries []Entry
	byID    map[string]int
	skipped int
	locale  language.Tag
}

// Option customises catalog construction.
type Option func(*Catalog)

// WithLocale sets the collation locale used for alphabetical ordering.
func WithLocale(tag language.Tag) Option {
	return func(c *Catalog) {
		c.locale = tag
	}
}

// New enriches places once and indexes them by identifier. Places without a
// name, and repeated identifiers after the first, are skipped.
func New(places []entity.Place, opts ...Option) *Catalog {
	c := &Catalog{
		entries: make([]Entry, 0, len(places)),
		byID:    make(map[string]int, len(places)),
		locale:  language.English,
	}
	for _, opt := range opts {
		opt(c)
	}

	for _, place := range places {
		place = place.WithDefaults()
		if place.Name == "" {
			c.skipped++
			continue
		}
		if _, dup := c.byID[place.ID]; dup {
			c.skipped++
			continue
		}
		c.byID[place.ID] = len(c.entries)
		c.entries = append(c.entries, Enrich(place))
	}

	return c
}

// Enrich derives the classification and search attributes of a place.
func Enrich(place entity.Place) Entry {
	category := taxonomy.Classify(place.Types)
	summary := PlainText(place.EditorialSummary)
	return Entry{
		Place:      place,
		Category:   category,
		TypeLabel:  taxonomy.TypeLabel(place.Types),
		Summary:    summary,
		SearchBlob: BuildSearchBlob(place, summary, category),
	}
}

// BuildSearchBlob lowercases the searchable fields of a place into one string.
// Fields are newline separated so a term never matches across two of them.
func BuildSearchBlob(place entity.Place, summary string, category entity.Category) string {
	fields := []string{
		place.Name,
		place.Address,
		place.FormattedAddress,
		summary,
		place.KnownFor,
		strings.Join(place.Cuisines, ", "),
		taxonomy.Label(category),
	}
	parts := fields[:0]
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			parts = append(parts, strings.ToLower(f))
		}
	}
	return strings.Join(parts, "\n")
}

// PlainText reduces an HTML snippet to its whitespace-normalised text.
func PlainText(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.ContainsAny(raw, "<&") {
		return raw
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Skipped returns how many input places were dropped during construction.
func (c *Catalog) Skipped() int {
	return c.skipped
}

// Entries returns the entries in dataset order.
func (c *Catalog) Entries() []Entry {
	return slices.Clone(c.entries)
}

// Get looks up an entry by place identifier.
func (c *Catalog) Get(id string) (Entry, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return Entry{}, false
	}
	return c.entries[idx], true
}

// Locale returns the collation locale.
func (c *Catalog) Locale() language.Tag {
	return c.locale
}
