package soa

import (
	"context"
	"sort"
	"sync"
)

// Store is the keyed store and listener list shared by every desk service.
// Listeners are called with the lock released so a listener may call back
// into the service that notified it.
type Store[K comparable, V any] struct {
	keyOf func(V) K

	mu        sync.RWMutex
	data      map[K]V
	listeners []Listener[V]
}

// NewStore returns an empty store keyed by keyOf.
func NewStore[K comparable, V any](keyOf func(V) K) *Store[K, V] {
	return &Store[K, V]{keyOf: keyOf, data: make(map[K]V)}
}

// GetData returns the stored value or the zero V.
func (s *Store[K, V]) GetData(key K) V {
	v, _ := s.Lookup(key)
	return v
}

func (s *Store[K, V]) Lookup(key K) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Put upserts v under its key.
func (s *Store[K, V]) Put(v V) {
	k := s.keyOf(v)
	s.mu.Lock()
	s.data[k] = v
	s.mu.Unlock()
}

// Delete removes key and returns the removed value.
func (s *Store[K, V]) Delete(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	delete(s.data, key)
	return v, ok
}

// Update replaces the value under key with fn(prev, found) atomically.
func (s *Store[K, V]) Update(key K, fn func(prev V, found bool) V) V {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.data[key]
	next := fn(prev, ok)
	s.data[key] = next
	return next
}

// Modify applies fn to the value under key atomically. It reports false and
// stores nothing when key is absent.
func (s *Store[K, V]) Modify(key K, fn func(v *V)) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return v, false
	}
	fn(&v)
	s.data[key] = v
	return v, true
}

// Len is the number of stored keys.
func (s *Store[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot copies every stored value. Order is unspecified.
func (s *Store[K, V]) Snapshot() []V {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]V, 0, len(s.data))
	for _, v := range s.data {
		out = append(out, v)
	}
	return out
}

// Keys returns the stored keys sorted by less.
func (s *Store[K, V]) Keys(less func(a, b K) bool) []K {
	s.mu.RLock()
	keys := make([]K, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	s.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys
}

func (s *Store[K, V]) AddListener(l Listener[V]) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Listeners returns a copy of the listener list in registration order.
func (s *Store[K, V]) Listeners() []Listener[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Listener[V](nil), s.listeners...)
}

// NotifyAdd calls ProcessAdd on each listener, stopping at the first error.
func (s *Store[K, V]) NotifyAdd(ctx context.Context, v V) error {
	for _, l := range s.Listeners() {
		if err := l.ProcessAdd(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[K, V]) NotifyRemove(ctx context.Context, v V) error {
	for _, l := range s.Listeners() {
		if err := l.ProcessRemove(ctx, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store[K, V]) NotifyUpdate(ctx context.Context, v V) error {
	for _, l := range s.Listeners() {
		if err := l.ProcessUpdate(ctx, v); err != nil {
			return err
		}
	}
	return nil
}
