// Package mapview converts query results into map marker descriptors and the
// viewport needed to frame them.
package mapview

import (
	"fmt"
	"math"
	"net/url"
	"slices"

	"github.com/asim/quadtree"
	"github.com/umahmood/haversine"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/detail"
	"github.com/octobees/place-intelligence/internal/service/taxonomy"
)

const (
	// CanvasWidth and CanvasHeight size the projection used when no map widget is available.
	CanvasWidth  = 800
	CanvasHeight = 500

	canvasPadding = 0.001
	edgeEpsilon   = 1e-9
)

// Adapter builds marker sets. Selection is resolved through the same detail
// aggregator used by the listing.
type Adapter struct {
	details *detail.Aggregator
}

// NewAdapter creates an Adapter.
func NewAdapter(details *detail.Aggregator) *Adapter {
	return &Adapter{details: details}
}

// ToMarkers converts entries to markers in input order. Entries without both
// coordinates are left out.
func (a *Adapter) ToMarkers(entries []catalog.Entry) []dto.Marker {
	markers := make([]dto.Marker, 0, len(entries))
	for _, e := range entries {
		lat, lng, ok := e.Place.Location()
		if !ok {
			continue
		}
		markers = append(markers, dto.Marker{
			Position: dto.LatLng{Lat: lat, Lng: lng},
			Color:    taxonomy.Color(e.Category),
			Payload: dto.MarkerPayload{
				ID:            e.Place.ID,
				Name:          e.Place.Name,
				Category:      e.Category,
				CategoryLabel: taxonomy.Label(e.Category),
				Rating:        e.Place.Rating,
				ReviewCount:   e.Place.ReviewCount,
				Tooltip:       tooltip(e),
				RatingColor:   taxonomy.RatingColor(e.Place.RatingValue()),
			},
			SelectURL: "/places/" + url.PathEscape(e.Place.ID),
			OnSelect: func() (dto.DetailView, bool) {
				return a.details.Aggregate(e), true
			},
		})
	}
	return markers
}

// View builds the markers for entries, optionally clipped to bounds, and the
// viewport framing them.
func (a *Adapter) View(entries []catalog.Entry, clip *dto.Bounds) dto.MapView {
	markers := a.ToMarkers(entries)
	if clip != nil {
		markers = Clip(markers, *clip)
	}

	view := dto.MapView{
		Markers: markers,
		Width:   CanvasWidth,
		Height:  CanvasHeight,
	}
	if len(markers) == 0 {
		return view
	}

	bounds := BoundsOf(markers)
	center := dto.LatLng{
		Lat: (bounds.MinLat + bounds.MaxLat) / 2,
		Lng: (bounds.MinLng + bounds.MaxLng) / 2,
	}
	view.Bounds = &bounds
	view.Center = &center
	view.RadiusKm = coveringRadiusKm(center, markers)
	project(markers, bounds)

	return view
}

// BoundsOf returns the smallest box containing every marker. markers must not be empty.
func BoundsOf(markers []dto.Marker) dto.Bounds {
	b := dto.Bounds{
		MinLat: math.Inf(1), MinLng: math.Inf(1),
		MaxLat: math.Inf(-1), MaxLng: math.Inf(-1),
	}
	for _, m := range markers {
		b.MinLat = math.Min(b.MinLat, m.Position.Lat)
		b.MaxLat = math.Max(b.MaxLat, m.Position.Lat)
		b.MinLng = math.Min(b.MinLng, m.Position.Lng)
		b.MaxLng = math.Max(b.MaxLng, m.Position.Lng)
	}
	return b
}

// Clip keeps the markers inside bounds, preserving their order.
func Clip(markers []dto.Marker, bounds dto.Bounds) []dto.Marker {
	world := quadtree.NewAABB(quadtree.NewPoint(0, 0, nil), quadtree.NewPoint(90, 180, nil))
	tree := quadtree.New(world, 0, nil)
	for i, m := range markers {
		tree.Insert(quadtree.NewPoint(m.Position.Lat, m.Position.Lng, i))
	}

	center := quadtree.NewPoint((bounds.MinLat+bounds.MaxLat)/2, (bounds.MinLng+bounds.MaxLng)/2, nil)
	half := quadtree.NewPoint(
		math.Abs(bounds.MaxLat-bounds.MinLat)/2+edgeEpsilon,
		math.Abs(bounds.MaxLng-bounds.MinLng)/2+edgeEpsilon,
		nil,
	)

	indexes := make([]int, 0)
	for _, pt := range tree.Search(quadtree.NewAABB(center, half)) {
		idx, ok := pt.Data().(int)
		if ok && bounds.Contains(markers[idx].Position) {
			indexes = append(indexes, idx)
		}
	}
	slices.Sort(indexes)

	out := make([]dto.Marker, 0, len(indexes))
	for _, idx := range indexes {
		out = append(out, markers[idx])
	}
	return out
}

func coveringRadiusKm(center dto.LatLng, markers []dto.Marker) float64 {
	origin := haversine.Coord{Lat: center.Lat, Lon: center.Lng}
	var radius float64
	for _, m := range markers {
		_, km := haversine.Distance(origin, haversine.Coord{Lat: m.Position.Lat, Lon: m.Position.Lng})
		radius = math.Max(radius, km)
	}
	return radius
}

func project(markers []dto.Marker, b dto.Bounds) {
	spanLng := b.MaxLng - b.MinLng + 2*canvasPadding
	spanLat := b.MaxLat - b.MinLat + 2*canvasPadding
	for i := range markers {
		p := markers[i].Position
		markers[i].Canvas = dto.CanvasPoint{
			X: (p.Lng - b.MinLng + canvasPadding) / spanLng * CanvasWidth,
			Y: CanvasHeight - (p.Lat-b.MinLat+canvasPadding)/spanLat*CanvasHeight,
		}
	}
}

func tooltip(e catalog.Entry) string {
	if e.Place.Rating == nil {
		return e.Place.Name
	}
	return fmt.Sprintf("%s (%g★)", e.Place.Name, *e.Place.Rating)
}
