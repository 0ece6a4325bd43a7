package service

import (
	"sync"
	"time"

	"github.com/octobees/place-intelligence/internal/dto"
	"github.com/octobees/place-intelligence/internal/service/catalog"
	"github.com/octobees/place-intelligence/internal/service/lazyload"
	"github.com/octobees/place-intelligence/internal/service/pagination"
)

// Session is one browsing context: its query state, the filtered result, the
// rendering cursor and the deferred resources registered by its consumer.
type Session struct {
	id string

	mu        sync.Mutex
	state     dto.QueryState
	results   []catalog.Entry
	inResults map[string]struct{}
	pager     *pagination.Paginator[catalog.Entry]
	resources *lazyload.Scheduler
	lastSeen  time.Time

	listenerMu   sync.Mutex
	listeners    map[uint64]lazyload.Sink
	nextListener uint64
}

func newSession(id string, batchSize int, resolve lazyload.Resolver, now time.Time) *Session {
	s := &Session{
		id:        id,
		pager:     pagination.New[catalog.Entry](batchSize),
		lastSeen:  now,
		listeners: make(map[uint64]lazyload.Sink),
	}
	s.resources = lazyload.New(resolve, lazyload.WithSink(s.deliver))
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// State returns the current query state.
func (s *Session) State() dto.QueryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Listen routes resolved resources to sink until the returned function is
// called. Every listener attached to the session receives each resource.
func (s *Session) Listen(sink lazyload.Sink) (stop func()) {
	s.listenerMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = sink
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *Session) deliver(res dto.ResolvedResource) {
	s.listenerMu.Lock()
	sinks := make([]lazyload.Sink, 0, len(s.listeners))
	for _, sink := range s.listeners {
		sinks = append(sinks, sink)
	}
	s.listenerMu.Unlock()

	for _, sink := range sinks {
		sink(res)
	}
}

// apply replaces the query, recomputes the result and rewinds the cursor in
// one step, then withdraws resources of places no longer in the result.
func (s *Session) apply(cat *catalog.Catalog, state dto.QueryState, now time.Time) pagination.Batch[catalog.Entry] {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = state
	s.results = cat.Query(state)
	s.inResults = make(map[string]struct{}, len(s.results))
	for _, e := range s.results {
		s.inResults[e.Place.ID] = struct{}{}
	}
	s.lastSeen = now

	generation := s.pager.Reset()
	s.resources.Retain(func(placeID string) bool {
		_, ok := s.inResults[placeID]
		return ok
	})

	batch, _ := s.pager.NextBatchFor(generation, s.results)
	return batch
}

func (s *Session) next(generation uint64, now time.Time) (pagination.Batch[catalog.Entry], int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
	batch, err := s.pager.NextBatchFor(generation, s.results)
	return batch, len(s.results), err
}

func (s *Session) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

func (s *Session) contains(placeID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inResults[placeID]
	return ok
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *Session) close() {
	s.resources.Close()
}
