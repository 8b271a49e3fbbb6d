// Copyright (c) 2024 - 2026 StoneGuard. All Rights Reserved.
// Please refer to our terms for more information:
// https://www.stoneguard.io/terms.html

// Package counter provides the expiring counters backing the rate limiter and
// the flow engine. Counters are held in a ristretto cache so that abandoned
// keys age out on their own; counting is therefore best effort under memory
// pressure, which both users tolerate.
package counter

import (
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/stoneguard/waf/internal/sglib/sgerrors"
)

const (
	numCounters = 1 << 20
	maxCost     = 1 << 22
	bufferItems = 64
)

// Store is a concurrent map of expiring counters.
type Store struct {
	cache *ristretto.Cache[string, *int64]
}

// NewStore returns an empty counter store.
func NewStore() (*Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *int64]{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, sgerrors.Wrap(err, "could not create the counter cache")
	}
	return &Store{cache: cache}, nil
}

// Incr increments the counter of `key` and returns its new value. A counter
// created by this call expires after `ttl`; the expiry of an existing counter
// is not extended.
func (s *Store) Incr(key string, ttl time.Duration) int64 {
	if v, ok := s.cache.Get(key); ok {
		return atomic.AddInt64(v, 1)
	}

	// Two concurrent first increments of the same key can both take this path
	// and one count is then lost. The limiter and the flow engine accept the
	// approximation.
	n := new(int64)
	*n = 1
	s.cache.SetWithTTL(key, n, 1, ttl)
	s.cache.Wait()
	return 1
}

// Peek returns the current value of the counter of `key`, zero when absent or
// expired.
func (s *Store) Peek(key string) int64 {
	if v, ok := s.cache.Get(key); ok {
		return atomic.LoadInt64(v)
	}
	return 0
}

// Reset removes the counter of `key`.
func (s *Store) Reset(key string) {
	s.cache.Del(key)
}

// Close releases the underlying cache resources.
func (s *Store) Close() {
	s.cache.Close()
}
