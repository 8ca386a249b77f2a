package contract

import (
	"sort"
	"sync"
)

// Store is the isolated state of a single contract, keyed by entity. Entries
// are created on first write and never deleted.
type Store[V any] struct {
	mu   sync.RWMutex
	data map[string]V
}

// NewStore constructs an empty state store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{
		data: make(map[string]V),
	}
}

// Get returns the value stored for the key.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	return v, exists
}

// Update performs a read-modify-write of the key under the store lock. The
// value returned by fn is only stored when fn succeeds.
func (s *Store[V]) Update(key string, fn func(v V, exists bool) (V, error)) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.data[key]

	v, err := fn(cur, exists)
	if err != nil {
		var zero V
		return zero, err
	}
	s.data[key] = v

	return v, nil
}

// Range calls fn for every entry in key order until fn returns false.
func (s *Store[V]) Range(fn func(key string, v V) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !fn(k, s.data[k]) {
			return
		}
	}
}

// Len returns the number of entities in the store.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}
