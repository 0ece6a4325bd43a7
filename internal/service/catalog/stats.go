package catalog

import (
	"cmp"
	"math"
	"slices"

	"golang.org/x/text/message"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
	"github.com/octobees/place-intelligence/internal/service/taxonomy"
)

// Stats summarises the whole catalog. Missing ratings count as zero in the average.
func (c *Catalog) Stats() dto.Stats {
	stats := dto.Stats{
		Places:     len(c.entries),
		Categories: make([]dto.CategoryCount, 0),
	}

	counts := make(map[entity.Category]int)
	var ratingSum float64
	for _, e := range c.entries {
		ratingSum += e.Place.RatingValue()
		stats.TotalReviews += e.Place.ReviewCount
		counts[e.Category]++
	}
	if stats.Places > 0 {
		stats.AverageRating = math.Round(ratingSum/float64(stats.Places)*10) / 10
	}

	printer := message.NewPrinter(c.locale)
	stats.TotalReviewsText = printer.Sprintf("%dK", int(math.Round(float64(stats.TotalReviews)/1000)))

	for _, category := range taxonomy.Categories() {
		if n := counts[category]; n > 0 {
			stats.Categories = append(stats.Categories, dto.CategoryCount{
				Category: category,
				Label:    taxonomy.Label(category),
				Count:    n,
			})
		}
	}
	slices.SortStableFunc(stats.Categories, func(a, b dto.CategoryCount) int {
		return cmp.Compare(b.Count, a.Count)
	})

	return stats
}
