package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/detail"
	"github.com/octobees/place-intelligence/internal/service/lazyload"
	"github.com/octobees/place-intelligence/internal/service/mapview"
	"github.com/octobees/place-intelligence/internal/service/pagination"
	"github.com/octobees/place-intelligence/internal/service/taxonomy"
)

const (
	defaultPerPage    = 20
	maxPerPage        = 100
	defaultSessionTTL = 30 * time.Minute
)

var (
	// ErrPlaceNotFound indicates the identifier is not part of the catalog.
	ErrPlaceNotFound = errors.New("place not found")
	// ErrSessionNotFound indicates the session expired or never existed.
	ErrSessionNotFound = errors.New("session not found")
	// ErrPlaceNotInView indicates the place is not part of the session's current result.
	ErrPlaceNotInView = errors.New("place is not in the current result")
	// ErrNoPhoto indicates the place has no deferred resource to load.
	ErrNoPhoto = errors.New("place has no photo")
	// ErrResourceNotFound indicates the resource was never registered or was withdrawn.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrStaleGeneration indicates a continuation for a result that has since been replaced.
	ErrStaleGeneration = pagination.ErrStaleGeneration
)

// QueryValidationError indicates that the provided query parameters are invalid.
type QueryValidationError struct {
	Message string
}

// Error implements the error interface.
func (e QueryValidationError) Error() string {
	return e.Message
}

// PlacesService coordinates queries, browsing sessions, detail views and map
// views over the in-memory catalog.
type PlacesService struct {
	catalog    *catalog.Catalog
	details    *detail.Aggregator
	maps       *mapview.Adapter
	batchSize  int
	sessionTTL time.Duration
	logger     *zap.Logger
	now        func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// PlacesOption customises a PlacesService.
type PlacesOption func(*PlacesService)

// WithBatchSize sets the number of cards per session batch.
func WithBatchSize(n int) PlacesOption {
	return func(s *PlacesService) {
		s.batchSize = n
	}
}

// WithSessionTTL sets how long an idle session is kept.
func WithSessionTTL(ttl time.Duration) PlacesOption {
	return func(s *PlacesService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) PlacesOption {
	return func(s *PlacesService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewPlacesService wires the service over a loaded catalog.
func NewPlacesService(cat *catalog.Catalog, details *detail.Aggregator, opts ...PlacesOption) *PlacesService {
	s := &PlacesService{
		catalog:    cat,
		details:    details,
		maps:       mapview.NewAdapter(details),
		batchSize:  pagination.DefaultBatchSize,
		sessionTTL: defaultSessionTTL,
		logger:     zap.NewNop(),
		now:        time.Now,
		sessions:   make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ParseQuery validates a wire query and converts it into a query state.
func ParseQuery(req dto.QueryRequest) (dto.QueryState, error) {
	state := dto.DefaultQueryState()
	state.SearchTerm = strings.TrimSpace(req.Q)
	state.RequireReviews = req.RequireReviews

	category, ok := taxonomy.ParseCategory(req.Category)
	if !ok {
		return dto.QueryState{}, QueryValidationError{Message: fmt.Sprintf("unknown category %q", req.Category)}
	}
	state.Category = category

	if math.IsNaN(req.MinRating) || req.MinRating < 0 || req.MinRating > 5 {
		return dto.QueryState{}, QueryValidationError{Message: "min_rating must be between 0 and 5"}
	}
	state.MinRating = req.MinRating

	if sortKey := strings.ToLower(strings.TrimSpace(req.Sort)); sortKey != "" {
		state.Sort = dto.SortKey(sortKey)
		if !state.Sort.Valid() {
			return dto.QueryState{}, QueryValidationError{Message: fmt.Sprintf("unsupported sort %q", req.Sort)}
		}
	}

	return state, nil
}

// List returns one page of the query result.
func (s *PlacesService) List(filter dto.ListFilter) dto.Page {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = defaultPerPage
	}
	if filter.PerPage > maxPerPage {
		filter.PerPage = maxPerPage
	}

	results := s.catalog.Query(filter.Query)
	start := len(results)
	if filter.Page-1 < len(results)/filter.PerPage+1 {
		start = min((filter.Page-1)*filter.PerPage, len(results))
	}
	end := min(start+filter.PerPage, len(results))

	return dto.Page{
		Items:    s.cards(results[start:end]),
		Page:     filter.Page,
		PerPage:  filter.PerPage,
		Total:    len(results),
		LastPage: max(1, (len(results)+filter.PerPage-1)/filter.PerPage),
	}
}

// Detail returns the aggregated view of one place.
func (s *PlacesService) Detail(placeID string) (dto.DetailView, error) {
	entry, ok := s.catalog.Get(placeID)
	if !ok {
		return dto.DetailView{}, ErrPlaceNotFound
	}
	return s.details.Aggregate(entry), nil
}

// Map returns the marker view of the query result, optionally clipped.
func (s *PlacesService) Map(state dto.QueryState, clip *dto.Bounds) dto.MapView {
	return s.maps.View(s.catalog.Query(state), clip)
}

// Stats summarises the catalog.
func (s *PlacesService) Stats() dto.Stats {
	return s.catalog.Stats()
}

// CreateSession starts a browsing session and returns its first batch.
func (s *PlacesService) CreateSession(state dto.QueryState) dto.BatchView {
	now := s.now()
	session := newSession(uuid.NewString(), s.batchSize, s.resolvePhoto, now)

	s.mu.Lock()
	s.sessions[session.id] = session
	s.mu.Unlock()

	batch := session.apply(s.catalog, state, now)
	s.logger.Info("session created",
		zap.String("session_id", session.id),
		zap.Int("results", session.total()),
	)
	return s.batchView(session.id, batch, session.total())
}

// UpdateQuery replaces the query of a session and returns the first batch of
// the new result. Continuations of the previous result become stale.
func (s *PlacesService) UpdateQuery(sessionID string, state dto.QueryState) (dto.BatchView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return dto.BatchView{}, err
	}

	batch := session.apply(s.catalog, state, s.now())
	s.logger.Debug("session query updated",
		zap.String("session_id", sessionID),
		zap.Uint64("generation", batch.Generation),
		zap.Int("results", session.total()),
	)
	return s.batchView(sessionID, batch, session.total()), nil
}

// NextBatch continues a session listing from the given generation.
func (s *PlacesService) NextBatch(sessionID string, generation uint64) (dto.BatchView, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return dto.BatchView{}, err
	}

	batch, total, err := session.next(generation, s.now())
	if err != nil {
		return dto.BatchView{}, err
	}
	return s.batchView(sessionID, batch, total), nil
}

// CloseSession ends a session and withdraws its pending resources.
func (s *PlacesService) CloseSession(sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	session.close()
	s.logger.Info("session closed", zap.String("session_id", sessionID))
	return nil
}

// Session returns a live session.
func (s *PlacesService) Session(sessionID string) (*Session, error) {
	return s.session(sessionID)
}

// RegisterResource defers loading the photo of a place in the session's result.
func (s *PlacesService) RegisterResource(sessionID, placeID string) (dto.ResourceHandle, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return dto.ResourceHandle{}, err
	}
	if _, ok := s.resolvePhoto(placeID); !ok {
		if _, exists := s.catalog.Get(placeID); !exists {
			return dto.ResourceHandle{}, ErrPlaceNotFound
		}
		return dto.ResourceHandle{}, ErrNoPhoto
	}
	if !session.contains(placeID) {
		return dto.ResourceHandle{}, ErrPlaceNotInView
	}

	handle, err := session.resources.Register(placeID)
	if err != nil {
		return dto.ResourceHandle{}, ErrSessionNotFound
	}
	return handle, nil
}

// SignalResource reports that a resource placeholder became visible and
// returns the resolved location.
func (s *PlacesService) SignalResource(sessionID, resourceID string) (dto.ResolvedResource, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return dto.ResolvedResource{}, err
	}

	res, err := session.resources.Signal(resourceID)
	switch {
	case errors.Is(err, lazyload.ErrNotRegistered), errors.Is(err, lazyload.ErrUnregistered),
		errors.Is(err, lazyload.ErrUnresolvable):
		return dto.ResolvedResource{}, ErrResourceNotFound
	case err != nil:
		return dto.ResolvedResource{}, err
	}
	return res, nil
}

// UnregisterResource withdraws a resource that left the view before loading.
func (s *PlacesService) UnregisterResource(sessionID, resourceID string) error {
	session, err := s.session(sessionID)
	if err != nil {
		return err
	}
	if !session.resources.Unregister(resourceID) {
		return ErrResourceNotFound
	}
	return nil
}

// SweepSessions closes sessions idle for longer than the TTL and returns how many were closed.
func (s *PlacesService) SweepSessions() int {
	now := s.now()

	s.mu.Lock()
	expired := make([]*Session, 0)
	for id, session := range s.sessions {
		if session.idleSince(now) > s.sessionTTL {
			expired = append(expired, session)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, session := range expired {
		session.close()
	}
	if len(expired) > 0 {
		s.logger.Info("expired sessions swept", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// RunSweeper sweeps idle sessions every interval until ctx is done.
func (s *PlacesService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepSessions()
		}
	}
}

// ActiveSessions returns the number of live sessions.
func (s *PlacesService) ActiveSessions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *PlacesService) session(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	session.touch(s.now())
	return session, nil
}

func (s *PlacesService) resolvePhoto(placeID string) (string, bool) {
	entry, ok := s.catalog.Get(placeID)
	if !ok || entry.Place.PhotoURL == nil {
		return "", false
	}
	photo := strings.TrimSpace(*entry.Place.PhotoURL)
	return photo, photo != ""
}

func (s *PlacesService) cards(entries []catalog.Entry) []dto.PlaceCard {
	out := make([]dto.PlaceCard, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.details.Summarize(e))
	}
	return out
}

func (s *PlacesService) batchView(sessionID string, batch pagination.Batch[catalog.Entry], total int) dto.BatchView {
	return dto.BatchView{
		SessionID:  sessionID,
		Generation: batch.Generation,
		Items:      s.cards(batch.Items),
		Rendered:   batch.Cursor,
		Total:      total,
		HasMore:    batch.HasMore,
	}
}
