package monitor

import (
	"sync"

	"github.com/forzenfox/douyu-monitor/telemetry"
)

// Store is a bounded FIFO of events for one kind. Insertion beyond capacity
// evicts the oldest entry; insertion never fails. Safe for concurrent use by
// the dispatcher, the expiry sweep, and HTTP readers.
type Store[T any] struct {
	kind Kind
	cap  int

	mu    sync.Mutex
	items []T
}

// NewStore returns an empty store capped at capacity entries.
func NewStore[T any](kind Kind, capacity int) *Store[T] {
	if capacity <= 0 {
		capacity = 100
	}
	return &Store[T]{kind: kind, cap: capacity}
}

// Push appends item, evicting the oldest entry when full.
func (s *Store[T]) Push(item T) {
	s.mu.Lock()
	if len(s.items) >= s.cap {
		n := copy(s.items, s.items[len(s.items)-s.cap+1:])
		s.items = s.items[:n]
	}
	s.items = append(s.items, item)
	depth := len(s.items)
	s.mu.Unlock()
	telemetry.SetStoreDepth(string(s.kind), depth)
}

// Len returns the number of retained events.
func (s *Store[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Snapshot returns the retained events, newest first.
func (s *Store[T]) Snapshot() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	for i, item := range s.items {
		out[len(s.items)-1-i] = item
	}
	return out
}

// ForEach calls fn on a pointer to every retained event, oldest first, under
// the store lock. fn must not call back into the store.
func (s *Store[T]) ForEach(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		fn(&s.items[i])
	}
}
