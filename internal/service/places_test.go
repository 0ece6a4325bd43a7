package service

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/entity"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/detail"
)

func ptr[T any](v T) *T { return &v }

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func samplePlaces() []entity.Place {
	return []entity.Place{
		{ID: "a", Name: "Alpha Cafe", Types: []string{"cafe"}, Rating: ptr(4.5), ReviewCount: 50, PhotoURL: ptr("https://img/a.jpg"), Lat: ptr(12.97), Lng: ptr(77.59)},
		{ID: "b", Name: "Beta Clinic", Types: []string{"doctor"}, Rating: ptr(3.0), ReviewCount: 10, Lat: ptr(12.98), Lng: ptr(77.6)},
		{ID: "c", Name: "Gamma Gym", Types: []string{"gym"}, Rating: ptr(4.8), ReviewCount: 5, PhotoURL: ptr("https://img/c.jpg")},
		{ID: "d", Name: "Delta Bakery", Types: []string{"bakery"}, Rating: ptr(4.1), ReviewCount: 40, PhotoURL: ptr("https://img/d.jpg")},
		{ID: "e", Name: "Echo Store", Types: []string{"store"}, ReviewCount: 1},
	}
}

func newTestService(t *testing.T, opts ...PlacesOption) (*PlacesService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	opts = append([]PlacesOption{WithBatchSize(2), WithLogger(zap.NewNop())}, opts...)
	svc := NewPlacesService(catalog.New(samplePlaces()), detail.NewAggregator(), opts...)
	svc.now = clock.Now
	return svc, clock
}

func cardIDs(cards []dto.PlaceCard) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.ID)
	}
	return out
}

func TestParseQuery(t *testing.T) {
	tests := map[string]struct {
		req     dto.QueryRequest
		want    dto.QueryState
		wantErr bool
	}{
		"defaults": {
			req:  dto.QueryRequest{},
			want: dto.QueryState{Category: entity.CategoryAll, Sort: dto.SortByReviewCount},
		},
		"full": {
			req:  dto.QueryRequest{Q: "  cafe ", Category: "Food & Drinks", MinRating: 4, Sort: "Rating", RequireReviews: true},
			want: dto.QueryState{SearchTerm: "cafe", Category: entity.CategoryFood, MinRating: 4, Sort: dto.SortByRating, RequireReviews: true},
		},
		"bad category": {req: dto.QueryRequest{Category: "cars"}, wantErr: true},
		"bad sort":     {req: dto.QueryRequest{Sort: "distance"}, wantErr: true},
		"bad rating":   {req: dto.QueryRequest{MinRating: 6}, wantErr: true},
		"negative":     {req: dto.QueryRequest{MinRating: -1}, wantErr: true},
		"nan rating":   {req: dto.QueryRequest{MinRating: math.NaN()}, wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := ParseQuery(tt.req)
			if tt.wantErr {
				var verr QueryValidationError
				assert.ErrorAs(t, err, &verr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPlacesService_List(t *testing.T) {
	svc, _ := newTestService(t)

	page := svc.List(dto.ListFilter{Query: dto.DefaultQueryState(), Page: 2, PerPage: 2})
	assert.Equal(t, []string{"b", "c"}, cardIDs(page.Items))
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 3, page.LastPage)

	beyond := svc.List(dto.ListFilter{Query: dto.DefaultQueryState(), Page: 9, PerPage: 2})
	assert.Empty(t, beyond.Items)

	huge := svc.List(dto.ListFilter{Query: dto.DefaultQueryState(), Page: math.MaxInt64 / 50, PerPage: 100})
	assert.Empty(t, huge.Items)
	assert.Equal(t, 5, huge.Total)

	defaults := svc.List(dto.ListFilter{Query: dto.DefaultQueryState(), PerPage: 500})
	assert.Equal(t, 1, defaults.Page)
	assert.Equal(t, maxPerPage, defaults.PerPage)

	none := svc.List(dto.ListFilter{Query: dto.QueryState{SearchTerm: "nothing"}})
	assert.Equal(t, 1, none.LastPage)
	assert.NotNil(t, none.Items)
}

func TestPlacesService_Detail(t *testing.T) {
	svc, _ := newTestService(t)

	view, err := svc.Detail("a")
	require.NoError(t, err)
	assert.Equal(t, "Alpha Cafe", view.Card.Name)

	_, err = svc.Detail("missing")
	assert.ErrorIs(t, err, ErrPlaceNotFound)
}

func TestPlacesService_Map(t *testing.T) {
	svc, _ := newTestService(t)
	view := svc.Map(dto.DefaultQueryState(), nil)
	assert.Len(t, view.Markers, 2)

	health := svc.Map(dto.QueryState{Category: entity.CategoryHealth}, nil)
	require.Len(t, health.Markers, 1)
	assert.Equal(t, "b", health.Markers[0].Payload.ID)
}

func TestPlacesService_SessionPaging(t *testing.T) {
	svc, _ := newTestService(t)

	first := svc.CreateSession(dto.DefaultQueryState())
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, []string{"a", "d"}, cardIDs(first.Items))
	assert.True(t, first.HasMore)
	assert.Equal(t, 5, first.Total)
	assert.Equal(t, 2, first.Rendered)

	second, err := svc.NextBatch(first.SessionID, first.Generation)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, cardIDs(second.Items))

	third, err := svc.NextBatch(first.SessionID, first.Generation)
	require.NoError(t, err)
	assert.Equal(t, []string{"e"}, cardIDs(third.Items))
	assert.False(t, third.HasMore)

	done, err := svc.NextBatch(first.SessionID, first.Generation)
	require.NoError(t, err)
	assert.Empty(t, done.Items)
	assert.False(t, done.HasMore)
}

func TestPlacesService_UpdateQueryResetsAndRejectsStale(t *testing.T) {
	svc, _ := newTestService(t)
	first := svc.CreateSession(dto.DefaultQueryState())

	updated, err := svc.UpdateQuery(first.SessionID, dto.QueryState{MinRating: 4, Sort: dto.SortByRating})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, cardIDs(updated.Items))
	assert.Equal(t, 2, updated.Rendered)
	assert.NotEqual(t, first.Generation, updated.Generation)

	_, err = svc.NextBatch(first.SessionID, first.Generation)
	assert.ErrorIs(t, err, ErrStaleGeneration)

	next, err := svc.NextBatch(first.SessionID, updated.Generation)
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, cardIDs(next.Items))
}

func TestPlacesService_UnknownSession(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateQuery("nope", dto.DefaultQueryState())
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = svc.NextBatch("nope", 1)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.CloseSession("nope"), ErrSessionNotFound)
	_, err = svc.RegisterResource("nope", "a")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPlacesService_Resources(t *testing.T) {
	svc, _ := newTestService(t)
	view := svc.CreateSession(dto.DefaultQueryState())

	session, err := svc.Session(view.SessionID)
	require.NoError(t, err)
	var delivered []dto.ResolvedResource
	stop := session.Listen(func(res dto.ResolvedResource) { delivered = append(delivered, res) })
	defer stop()

	handle, err := svc.RegisterResource(view.SessionID, "a")
	require.NoError(t, err)

	res, err := svc.SignalResource(view.SessionID, handle.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "https://img/a.jpg", res.ResolvedURL)
	assert.Equal(t, handle.PlaceholderID, res.PlaceholderID)
	assert.Equal(t, []dto.ResolvedResource{res}, delivered)

	_, err = svc.RegisterResource(view.SessionID, "b")
	assert.ErrorIs(t, err, ErrNoPhoto)
	_, err = svc.RegisterResource(view.SessionID, "zzz")
	assert.ErrorIs(t, err, ErrPlaceNotFound)

	_, err = svc.SignalResource(view.SessionID, "unknown")
	assert.ErrorIs(t, err, ErrResourceNotFound)
}

func TestSession_ListenersAreIndependent(t *testing.T) {
	svc, _ := newTestService(t)
	view := svc.CreateSession(dto.DefaultQueryState())
	session, err := svc.Session(view.SessionID)
	require.NoError(t, err)

	var first, second []dto.ResolvedResource
	stopFirst := session.Listen(func(res dto.ResolvedResource) { first = append(first, res) })
	stopSecond := session.Listen(func(res dto.ResolvedResource) { second = append(second, res) })
	defer stopSecond()

	stopFirst()

	handle, err := svc.RegisterResource(view.SessionID, "a")
	require.NoError(t, err)
	res, err := svc.SignalResource(view.SessionID, handle.ResourceID)
	require.NoError(t, err)

	assert.Empty(t, first)
	assert.Equal(t, []dto.ResolvedResource{res}, second, "closing one listener leaves the other attached")
}

func TestPlacesService_RequeryWithdrawsFilteredResources(t *testing.T) {
	svc, _ := newTestService(t)
	view := svc.CreateSession(dto.DefaultQueryState())

	cafe, err := svc.RegisterResource(view.SessionID, "a")
	require.NoError(t, err)
	gym, err := svc.RegisterResource(view.SessionID, "c")
	require.NoError(t, err)

	_, err = svc.UpdateQuery(view.SessionID, dto.QueryState{Category: entity.CategoryBeauty})
	require.NoError(t, err)

	_, err = svc.SignalResource(view.SessionID, cafe.ResourceID)
	assert.ErrorIs(t, err, ErrResourceNotFound, "filtered-away resource must be withdrawn")

	res, err := svc.SignalResource(view.SessionID, gym.ResourceID)
	require.NoError(t, err)
	assert.Equal(t, "https://img/c.jpg", res.ResolvedURL)

	_, err = svc.RegisterResource(view.SessionID, "a")
	assert.ErrorIs(t, err, ErrPlaceNotInView)
}

func TestPlacesService_UnregisterResource(t *testing.T) {
	svc, _ := newTestService(t)
	view := svc.CreateSession(dto.DefaultQueryState())
	handle, err := svc.RegisterResource(view.SessionID, "d")
	require.NoError(t, err)

	require.NoError(t, svc.UnregisterResource(view.SessionID, handle.ResourceID))
	assert.ErrorIs(t, svc.UnregisterResource(view.SessionID, handle.ResourceID), ErrResourceNotFound)
}

func TestPlacesService_SweepSessions(t *testing.T) {
	svc, clock := newTestService(t, WithSessionTTL(time.Minute))
	idle := svc.CreateSession(dto.DefaultQueryState())
	active := svc.CreateSession(dto.DefaultQueryState())

	clock.Advance(45 * time.Second)
	_, err := svc.NextBatch(active.SessionID, active.Generation)
	require.NoError(t, err)
	clock.Advance(30 * time.Second)

	assert.Equal(t, 1, svc.SweepSessions())
	assert.Equal(t, 1, svc.ActiveSessions())
	_, err = svc.Session(idle.SessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPlacesService_CloseSession(t *testing.T) {
	svc, _ := newTestService(t)
	view := svc.CreateSession(dto.DefaultQueryState())
	require.NoError(t, svc.CloseSession(view.SessionID))
	assert.Zero(t, svc.ActiveSessions())
}

func TestPlacesService_Stats(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, 5, svc.Stats().Places)
}
