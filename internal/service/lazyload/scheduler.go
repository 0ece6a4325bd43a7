// Package lazyload defers resolving heavy resources, such as photos, until
// the consumer reports that their placeholder is about to become visible.
package lazyload

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/octobees/place-intelligence/internal/dto"
)

var (
	// ErrNotRegistered is returned for identifiers the scheduler does not know.
	ErrNotRegistered = errors.New("lazyload: resource not registered")
	// ErrUnregistered is returned to waiters whose registration was withdrawn.
	ErrUnregistered = errors.New("lazyload: resource unregistered before resolution")
	// ErrUnresolvable is returned when the resolver has no location for the key.
	ErrUnresolvable = errors.New("lazyload: resource has no location")
	// ErrClosed is returned once the scheduler has been closed.
	ErrClosed = errors.New("lazyload: scheduler closed")
)

// Resolver maps a registration key to the real resource location.
type Resolver func(key string) (string, bool)

// Sink receives every resolved resource exactly once.
type Sink func(dto.ResolvedResource)

type state int

const (
	statePending state = iota
	stateInFlight
	stateResolved
)

type registration struct {
	handle dto.ResourceHandle
	key    string
	state  state
	done   chan struct{}
	result dto.ResolvedResource
	err    error
}

// Scheduler tracks pending resources for one consumer.
type Scheduler struct {
	resolve Resolver
	sink    Sink
	group   singleflight.Group

	mu     sync.Mutex
	regs   map[string]*registration
	closed bool
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithSink sets the consumer notified of each resolution.
func WithSink(sink Sink) Option {
	return func(s *Scheduler) {
		s.sink = sink
	}
}

// New creates a scheduler resolving keys with resolve.
func New(resolve Resolver, opts ...Option) *Scheduler {
	s := &Scheduler{
		resolve: resolve,
		regs:    make(map[string]*registration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register starts tracking a resource identified by key and returns its handle.
func (s *Scheduler) Register(key string) (dto.ResourceHandle, error) {
	id := uuid.NewString()
	reg := &registration{
		handle: dto.ResourceHandle{ResourceID: id, PlaceholderID: "ph-" + id},
		key:    key,
		done:   make(chan struct{}),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return dto.ResourceHandle{}, ErrClosed
	}
	s.regs[id] = reg
	return reg.handle, nil
}

// Signal reports that the placeholder of id is visible. The first signal
// resolves the resource and notifies the sink; later signals return the same
// result without notifying again.
func (s *Scheduler) Signal(id string) (dto.ResolvedResource, error) {
	v, err, _ := s.group.Do(id, func() (any, error) {
		return s.resolveOnce(id)
	})
	if err != nil {
		return dto.ResolvedResource{}, err
	}
	return v.(dto.ResolvedResource), nil
}

func (s *Scheduler) resolveOnce(id string) (dto.ResolvedResource, error) {
	s.mu.Lock()
	reg, ok := s.regs[id]
	if !ok {
		s.mu.Unlock()
		return dto.ResolvedResource{}, ErrNotRegistered
	}
	if reg.state != statePending {
		s.mu.Unlock()
		<-reg.done
		return reg.result, reg.err
	}
	reg.state = stateInFlight
	s.mu.Unlock()

	target, found := s.resolve(reg.key)

	s.mu.Lock()
	if s.regs[id] != reg {
		// withdrawn while the resolver ran
		s.mu.Unlock()
		return dto.ResolvedResource{}, ErrUnregistered
	}
	if !found {
		delete(s.regs, id)
		reg.err = ErrUnresolvable
		close(reg.done)
		s.mu.Unlock()
		return dto.ResolvedResource{}, ErrUnresolvable
	}
	reg.state = stateResolved
	reg.result = dto.ResolvedResource{PlaceholderID: reg.handle.PlaceholderID, ResolvedURL: target}
	close(reg.done)
	s.mu.Unlock()

	if s.sink != nil {
		s.sink(reg.result)
	}
	return reg.result, nil
}

// Await blocks until id is resolved, withdrawn, or ctx is done.
func (s *Scheduler) Await(ctx context.Context, id string) (dto.ResolvedResource, error) {
	s.mu.Lock()
	reg, ok := s.regs[id]
	s.mu.Unlock()
	if !ok {
		return dto.ResolvedResource{}, ErrNotRegistered
	}

	select {
	case <-reg.done:
		return reg.result, reg.err
	case <-ctx.Done():
		return dto.ResolvedResource{}, ctx.Err()
	}
}

// Unregister withdraws id, including a registration whose resolution is in
// progress. Waiters are released with ErrUnregistered. It reports whether
// anything was removed.
func (s *Scheduler) Unregister(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unregisterLocked(id)
}

func (s *Scheduler) unregisterLocked(id string) bool {
	reg, ok := s.regs[id]
	if !ok {
		return false
	}
	delete(s.regs, id)
	if reg.state != stateResolved {
		reg.err = ErrUnregistered
		close(reg.done)
	}
	return true
}

// Retain withdraws every registration, resolved or not, whose key keep
// rejects and returns how many were withdrawn.
func (s *Scheduler) Retain(keep func(key string) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, reg := range s.regs {
		if !keep(reg.key) {
			s.unregisterLocked(id)
			removed++
		}
	}
	return removed
}

// Pending returns the number of registrations awaiting a visibility signal.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, reg := range s.regs {
		if reg.state == statePending {
			n++
		}
	}
	return n
}

// Close withdraws all registrations and rejects new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.regs {
		s.unregisterLocked(id)
	}
	s.closed = true
}
