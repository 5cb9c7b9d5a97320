// Package bounded provides a fixed-capacity list.
//
// Readings, query results and export bindings all have hard upper limits.
// List makes that limit explicit: TryAppend refuses to grow past the
// capacity chosen at construction and leaves the list untouched.
package bounded

import "errors"

// ErrCapacityExceeded is returned when appending to a full list.
var ErrCapacityExceeded = errors.New("bounded: capacity exceeded")

// List is an ordered sequence of at most Cap() items.
//
// The zero value is unusable; create lists with New.
type List[T any] struct {
	items []T
	limit int
}

// New creates an empty list that holds at most limit items.
// A non-positive limit yields a list that rejects every append.
func New[T any](limit int) *List[T] {
	if limit < 0 {
		limit = 0
	}
	return &List[T]{
		items: make([]T, 0, min(limit, 16)),
		limit: limit,
	}
}

// TryAppend adds v to the end of the list.
//
// Returns:
//   - error: ErrCapacityExceeded if the list is already full
func (l *List[T]) TryAppend(v T) error {
	if len(l.items) >= l.limit {
		return ErrCapacityExceeded
	}
	l.items = append(l.items, v)
	return nil
}

// Len returns the number of items held.
func (l *List[T]) Len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// Cap returns the maximum number of items the list accepts.
func (l *List[T]) Cap() int {
	if l == nil {
		return 0
	}
	return l.limit
}

// Full reports whether another append would fail.
func (l *List[T]) Full() bool {
	return l.Len() >= l.Cap()
}

// At returns the item at index i. It panics if i is out of range,
// as slice indexing does.
func (l *List[T]) At(i int) T {
	return l.items[i]
}

// Items returns the held items in insertion order.
// The returned slice aliases the list; callers must not append to it.
func (l *List[T]) Items() []T {
	if l == nil {
		return nil
	}
	return l.items[:len(l.items):len(l.items)]
}

// Reset drops every item while keeping the capacity limit.
func (l *List[T]) Reset() {
	if l == nil {
		return
	}
	clear(l.items)
	l.items = l.items[:0]
}
