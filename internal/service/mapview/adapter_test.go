package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/detail"
	"github.com/octobees/place-intelligence/internal/service/taxonomy"
)

func ptr[T any](v T) *T { return &v }

func entries() []catalog.Entry {
	return catalog.New([]entity.Place{
		{ID: "cafe", Name: "Cafe", Types: []string{"cafe"}, Lat: ptr(12.97), Lng: ptr(77.59), Rating: ptr(4.6)},
		{ID: "nowhere", Name: "No Coordinates", Types: []string{"doctor"}, Lat: ptr(12.9)},
		{ID: "clinic", Name: "Clinic", Types: []string{"doctor"}, Lat: ptr(12.99), Lng: ptr(77.61)},
		{ID: "spa", Name: "Spa", Types: []string{"spa"}, Lat: ptr(12.95), Lng: ptr(77.57), Rating: ptr(3.9)},
	}).Entries()
}

func TestToMarkers(t *testing.T) {
	a := NewAdapter(detail.NewAggregator())
	markers := a.ToMarkers(entries())

	require.Len(t, markers, 3, "entries without coordinates are excluded")
	assert.Equal(t, "cafe", markers[0].Payload.ID)
	assert.Equal(t, "clinic", markers[1].Payload.ID)
	assert.Equal(t, "spa", markers[2].Payload.ID)

	m := markers[0]
	assert.Equal(t, dto.LatLng{Lat: 12.97, Lng: 77.59}, m.Position)
	assert.Equal(t, taxonomy.Color(entity.CategoryFood), m.Color)
	assert.Equal(t, "Food & Drinks", m.Payload.CategoryLabel)
	assert.Equal(t, "Cafe (4.6★)", m.Payload.Tooltip)
	assert.Equal(t, "/places/cafe", m.SelectURL)
	assert.Equal(t, "Clinic", markers[1].Payload.Tooltip)
}

func TestToMarkers_SelectUsesDetailAggregator(t *testing.T) {
	agg := detail.NewAggregator()
	a := NewAdapter(agg)
	list := entries()
	markers := a.ToMarkers(list)

	view, ok := markers[2].OnSelect()
	require.True(t, ok)
	assert.Equal(t, agg.Aggregate(list[3]), view)
}

func TestToMarkers_Empty(t *testing.T) {
	markers := NewAdapter(detail.NewAggregator()).ToMarkers(nil)
	assert.NotNil(t, markers)
	assert.Empty(t, markers)
}

func TestView(t *testing.T) {
	view := NewAdapter(detail.NewAggregator()).View(entries(), nil)

	require.Len(t, view.Markers, 3)
	require.NotNil(t, view.Bounds)
	assert.Equal(t, dto.Bounds{MinLat: 12.95, MinLng: 77.57, MaxLat: 12.99, MaxLng: 77.61}, *view.Bounds)
	require.NotNil(t, view.Center)
	assert.InDelta(t, 12.97, view.Center.Lat, 1e-9)
	assert.InDelta(t, 77.59, view.Center.Lng, 1e-9)
	assert.Greater(t, view.RadiusKm, 2.0)
	assert.Less(t, view.RadiusKm, 4.0)

	for _, m := range view.Markers {
		assert.GreaterOrEqual(t, m.Canvas.X, 0.0)
		assert.LessOrEqual(t, m.Canvas.X, float64(CanvasWidth))
		assert.GreaterOrEqual(t, m.Canvas.Y, 0.0)
		assert.LessOrEqual(t, m.Canvas.Y, float64(CanvasHeight))
	}
	// northernmost marker is drawn highest
	assert.Less(t, view.Markers[1].Canvas.Y, view.Markers[2].Canvas.Y)
}

func TestView_Empty(t *testing.T) {
	view := NewAdapter(detail.NewAggregator()).View(nil, nil)
	assert.Empty(t, view.Markers)
	assert.Nil(t, view.Bounds)
	assert.Nil(t, view.Center)
	assert.Equal(t, CanvasWidth, view.Width)
}

func TestView_Clip(t *testing.T) {
	clip := &dto.Bounds{MinLat: 12.96, MinLng: 77.58, MaxLat: 12.99, MaxLng: 77.61}
	view := NewAdapter(detail.NewAggregator()).View(entries(), clip)

	ids := make([]string, 0, len(view.Markers))
	for _, m := range view.Markers {
		ids = append(ids, m.Payload.ID)
	}
	assert.Equal(t, []string{"cafe", "clinic"}, ids, "edge points are kept and order is preserved")
}

func TestClip_NoneInside(t *testing.T) {
	markers := NewAdapter(detail.NewAggregator()).ToMarkers(entries())
	out := Clip(markers, dto.Bounds{MinLat: -10, MinLng: -10, MaxLat: -5, MaxLng: -5})
	assert.Empty(t, out)
}
