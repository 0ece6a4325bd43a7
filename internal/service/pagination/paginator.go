// Package pagination slices an ordered result into fixed-size batches for
// incremental rendering.
package pagination

import (
	"errors"
	"fmt"
	"sync"
)

// DefaultBatchSize is the number of items rendered per batch unless configured otherwise.
const DefaultBatchSize = 30

// ErrStaleGeneration is returned when a continuation belongs to a result set
// that has since been reset.
var ErrStaleGeneration = errors.New("pagination: stale generation")

// Batch is one slice of the filtered result.
type Batch[T any] struct {
	Items      []T
	HasMore    bool
	Cursor     int
	Generation uint64
}

// Paginator tracks how far into the current result the caller has rendered.
// Reset must be called whenever the underlying result changes.
type Paginator[T any] struct {
	mu         sync.Mutex
	batchSize  int
	cursor     int
	generation uint64
}

// New creates a paginator. A non-positive batch size is a programming error.
func New[T any](batchSize int) *Paginator[T] {
	if batchSize <= 0 {
		panic(fmt.Sprintf("pagination: batch size must be positive, got %d", batchSize))
	}
	return &Paginator[T]{batchSize: batchSize}
}

// BatchSize returns the configured batch size.
func (p *Paginator[T]) BatchSize() int {
	return p.batchSize
}

// Reset rewinds the cursor and starts a new generation, which is returned.
func (p *Paginator[T]) Reset() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cursor = 0
	p.generation++
	return p.generation
}

// Generation returns the current generation.
func (p *Paginator[T]) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.generation
}

// Cursor returns how many items have been handed out since the last reset.
func (p *Paginator[T]) Cursor() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// NextBatch returns the next at most BatchSize items of filtered and advances
// the cursor. Once exhausted it returns an empty batch and leaves state alone.
func (p *Paginator[T]) NextBatch(filtered []T) Batch[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.next(filtered)
}

// NextBatchFor behaves like NextBatch but refuses continuations issued for an
// older generation.
func (p *Paginator[T]) NextBatchFor(generation uint64, filtered []T) (Batch[T], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if generation != p.generation {
		return Batch[T]{Items: []T{}, Cursor: p.cursor, Generation: p.generation}, ErrStaleGeneration
	}
	return p.next(filtered), nil
}

func (p *Paginator[T]) next(filtered []T) Batch[T] {
	start := min(p.cursor, len(filtered))
	end := min(start+p.batchSize, len(filtered))

	items := make([]T, end-start)
	copy(items, filtered[start:end])
	p.cursor = end

	return Batch[T]{
		Items:      items,
		HasMore:    end < len(filtered),
		Cursor:     p.cursor,
		Generation: p.generation,
	}
}
