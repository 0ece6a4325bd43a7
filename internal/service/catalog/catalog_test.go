package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
)

func ptr[T any](v T) *T { return &v }

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Place.Name)
	}
	return out
}

func scenarioCatalog() *Catalog {
	return New([]entity.Place{
		{ID: "a", Name: "A", Types: []string{"cafe"}, Rating: ptr(4.5), ReviewCount: 50},
		{ID: "b", Name: "B", Types: []string{"doctor"}, Rating: ptr(3.0), ReviewCount: 10},
		{ID: "c", Name: "C", Types: []string{"gym"}, Rating: ptr(4.8), ReviewCount: 5},
	})
}

func TestQuery_Scenario(t *testing.T) {
	c := scenarioCatalog()

	tests := map[string]struct {
		state dto.QueryState
		want  []string
	}{
		"all by reviews": {
			state: dto.QueryState{Category: entity.CategoryAll, Sort: dto.SortByReviewCount},
			want:  []string{"A", "B", "C"},
		},
		"health only": {
			state: dto.QueryState{Category: entity.CategoryHealth, Sort: dto.SortByReviewCount},
			want:  []string{"B"},
		},
		"min rating by rating": {
			state: dto.QueryState{Category: entity.CategoryAll, MinRating: 4.0, Sort: dto.SortByRating},
			want:  []string{"C", "A"},
		},
		"gym classified as beauty": {
			state: dto.QueryState{Category: entity.CategoryBeauty},
			want:  []string{"C"},
		},
		"unknown sort keeps dataset order": {
			state: dto.QueryState{Category: entity.CategoryAll, Sort: "random"},
			want:  []string{"A", "B", "C"},
		},
		"no matches": {
			state: dto.QueryState{SearchTerm: "zzz"},
			want:  []string{},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(c.Query(tt.state)))
		})
	}
}

func TestQuery_Deterministic(t *testing.T) {
	c := scenarioCatalog()
	state := dto.QueryState{Category: entity.CategoryAll, Sort: dto.SortByRating, MinRating: 1}
	assert.Equal(t, c.Query(state), c.Query(state))
}

func TestQuery_MinRatingMonotonic(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "One", Rating: ptr(1.0)},
		{ID: "2", Name: "Two", Rating: ptr(2.5)},
		{ID: "3", Name: "Three"},
		{ID: "4", Name: "Four", Rating: ptr(4.9)},
	})

	prev := len(c.Query(dto.QueryState{MinRating: 0}))
	assert.Equal(t, 4, prev, "zero threshold keeps unrated places")
	for _, r := range []float64{0.5, 1, 2.5, 3, 4.9, 5} {
		got := len(c.Query(dto.QueryState{MinRating: r}))
		assert.LessOrEqual(t, got, prev, "raising min rating to %v grew the result", r)
		prev = got
	}
}

func TestQuery_StableTies(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "First", Rating: ptr(4.0), ReviewCount: 7},
		{ID: "2", Name: "Second", Rating: ptr(4.0), ReviewCount: 7},
		{ID: "3", Name: "Third", Rating: ptr(4.0), ReviewCount: 7},
	})

	assert.Equal(t, []string{"First", "Second", "Third"}, names(c.Query(dto.QueryState{Sort: dto.SortByRating})))
	assert.Equal(t, []string{"First", "Second", "Third"}, names(c.Query(dto.QueryState{Sort: dto.SortByReviewCount})))
}

func TestQuery_Alphabetical(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "banana leaf"},
		{ID: "2", Name: "Apple Bistro"},
		{ID: "3", Name: "Écrin"},
		{ID: "4", Name: "cafe coffee"},
	}, WithLocale(language.English))

	got := names(c.Query(dto.QueryState{Sort: dto.SortAlphabetical}))
	assert.Equal(t, []string{"Apple Bistro", "banana leaf", "cafe coffee", "Écrin"}, got)
}

func TestQuery_SearchTerm(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "Third Wave", Address: "Indiranagar", Types: []string{"cafe"}},
		{ID: "2", Name: "Smile Dental", KnownFor: "Root canal", Types: []string{"dentist"}},
		{ID: "3", Name: "Spice Route", Cuisines: []string{"Kerala", "Chettinad"}, Types: []string{"restaurant"}},
		{ID: "4", Name: "Quiet Stay", EditorialSummary: "<p>Rooms near the <b>lake</b></p>", Types: []string{"lodging"}},
	})

	tests := map[string]struct {
		term string
		want []string
	}{
		"name case insensitive": {term: "THIRD", want: []string{"Third Wave"}},
		"address":               {term: "indira", want: []string{"Third Wave"}},
		"known for":             {term: "root canal", want: []string{"Smile Dental"}},
		"cuisine":               {term: "chettinad", want: []string{"Spice Route"}},
		"category label":        {term: "health & medical", want: []string{"Smile Dental"}},
		"summary text":          {term: "near the lake", want: []string{"Quiet Stay"}},
		"markup not indexed":    {term: "<b>", want: []string{}},
		"empty matches all":     {term: "", want: []string{"Third Wave", "Smile Dental", "Spice Route", "Quiet Stay"}},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(c.Query(dto.QueryState{SearchTerm: tt.term})))
		})
	}
}

func TestQuery_RequireReviews(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "Reviewed", Reviews: []entity.Review{{Author: "x", Rating: 5}}},
		{ID: "2", Name: "Silent"},
	})
	assert.Equal(t, []string{"Reviewed"}, names(c.Query(dto.QueryState{RequireReviews: true})))
	assert.Len(t, c.Query(dto.QueryState{}), 2)
}

func TestQuery_DoesNotMutateCatalog(t *testing.T) {
	c := scenarioCatalog()
	before := c.Entries()

	result := c.Query(dto.QueryState{Sort: dto.SortByRating})
	require.NotEmpty(t, result)
	result[0].Place.Name = "changed"

	assert.Equal(t, before, c.Entries())
}

func TestNew_SkipsUnusableRecords(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "Kept"},
		{ID: "1", Name: "Duplicate"},
		{ID: "2", Name: "   "},
		{Name: "Generated ID"},
	})

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 2, c.Skipped())

	entry, ok := c.Get("1")
	require.True(t, ok)
	assert.Equal(t, "Kept", entry.Place.Name)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestEnrich(t *testing.T) {
	place := entity.Place{
		ID:               "x",
		Name:             "Blue Tokai",
		Address:          "12th Main",
		Types:            []string{"point_of_interest", "cafe"},
		EditorialSummary: "Single origin &amp; pour-overs",
	}

	entry := Enrich(place)

	assert.Equal(t, entity.CategoryFood, entry.Category)
	assert.Equal(t, "Cafe", entry.TypeLabel)
	assert.Equal(t, "Single origin & pour-overs", entry.Summary)
	assert.Equal(t, "blue tokai\n12th main\nsingle origin & pour-overs\nfood & drinks", entry.SearchBlob)
	assert.Equal(t, "Single origin &amp; pour-overs", place.EditorialSummary, "source record is untouched")
}

func TestBuildSearchBlob_LowercaseAndOrdered(t *testing.T) {
	blob := BuildSearchBlob(entity.Place{
		Name:             "Name",
		Address:          "Addr",
		FormattedAddress: "Full Addr",
		KnownFor:         "Dosa",
		Cuisines:         []string{"South Indian", "Chinese"},
	}, "Summary", entity.CategoryFood)

	assert.Equal(t, strings.ToLower(blob), blob)
	assert.Equal(t, "name\naddr\nfull addr\nsummary\ndosa\nsouth indian, chinese\nfood & drinks", blob)
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "plain", PlainText("  plain "))
	assert.Equal(t, "Hello world", PlainText("<div>Hello <em>world</em></div>"))
	assert.Equal(t, "", PlainText(""))
}

func TestStats(t *testing.T) {
	c := New([]entity.Place{
		{ID: "1", Name: "A", Types: []string{"cafe"}, Rating: ptr(4.0), ReviewCount: 1200},
		{ID: "2", Name: "B", Types: []string{"bar"}, Rating: ptr(4.5), ReviewCount: 800},
		{ID: "3", Name: "C", Types: []string{"doctor"}, ReviewCount: 0},
	})

	stats := c.Stats()

	assert.Equal(t, 3, stats.Places)
	assert.Equal(t, 2.8, stats.AverageRating)
	assert.Equal(t, 2000, stats.TotalReviews)
	assert.Equal(t, "2K", stats.TotalReviewsText)
	require.Len(t, stats.Categories, 2)
	assert.Equal(t, entity.CategoryFood, stats.Categories[0].Category)
	assert.Equal(t, 2, stats.Categories[0].Count)
	assert.Equal(t, "Health & Medical", stats.Categories[1].Label)
}

func TestStats_Empty(t *testing.T) {
	stats := New(nil).Stats()
	assert.Zero(t, stats.Places)
	assert.Zero(t, stats.AverageRating)
	assert.NotNil(t, stats.Categories)
	assert.Equal(t, "0K", stats.TotalReviewsText)
}
