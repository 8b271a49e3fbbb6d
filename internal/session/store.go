// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

package session

import (
	"sync"

	"github.com/google/uuid"
)

// store is one of the per-session state maps. Each store is independently
// lockable; the accessors in accessors.go are the only stage-facing way in,
// and they enforce the global acquisition order
// configuration → raw → request-info → security-policy → tags.
//
// Two different sessions only ever contend on the brief map-wide lock of an
// insert or remove; all longer-held locks guard value accesses keyed by one
// session id.
type store[T any] struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]T
}

func newStore[T any]() *store[T] {
	return &store[T]{entries: make(map[uuid.UUID]T)}
}

// has reports the presence of the session id. It takes the store read lock
// and must therefore not be called while holding any later lock of the global
// order.
func (s *store[T]) has(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.entries[id]
	return ok
}

// get returns the value of the session id, without holding the lock past the
// lookup. Only used for values that are immutable once inserted.
func (s *store[T]) get(id uuid.UUID) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[id]
	return v, ok
}

// remove deletes the session entry. Removing an absent id is a no-op.
func (s *store[T]) remove(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
}
