/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package memstore provides an in-process implementation of store.ExpiringStore.
// It is suitable for a single process and as a reference store in tests.
package memstore

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/acronis/go-bucketgrid/store"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Store is an in-memory store.ExpiringStore.
type Store struct {
	mu      sync.Mutex
	entries map[string]entry
	nowFn   func() time.Time
}

var _ store.ExpiringStore = (*Store)(nil)

// Option is a functional option for Store.
type Option func(*Store)

// WithClock sets the function used to get current time for expiration.
func WithClock(nowFn func() time.Time) Option {
	return func(s *Store) {
		s.nowFn = nowFn
	}
}

// New creates a new empty Store.
func New(options ...Option) *Store {
	s := &Store{entries: make(map[string]entry), nowFn: time.Now}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(e.value), true, nil
}

// CompareAndSwap implements store.Store.
func (s *Store) CompareAndSwap(ctx context.Context, key string, expected, newValue []byte) (bool, error) {
	return s.CompareAndSwapWithTTL(ctx, key, expected, newValue, 0)
}

// CompareAndSwapWithTTL implements store.ExpiringStore.
func (s *Store) CompareAndSwapWithTTL(
	ctx context.Context, key string, expected, newValue []byte, ttl time.Duration,
) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, exists := s.lookup(key)
	if expected == nil {
		if exists {
			return false, nil
		}
	} else if !exists || !bytes.Equal(cur.value, expected) {
		return false, nil
	}

	e := entry{value: bytes.Clone(newValue)}
	if ttl > 0 {
		e.expiresAt = s.nowFn().Add(ttl)
	}
	s.entries[key] = e
	return true, nil
}

// Len returns the number of stored entries including expired but not yet removed ones.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// RemoveExpired removes all expired entries and returns their number.
func (s *Store) RemoveExpired() int {
	now := s.nowFn()

	s.mu.Lock()
	defer s.mu.Unlock()

	var removed int
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// RunPeriodicCleanup removes expired entries every cleanupInterval until ctx is done.
// It's supposed to be run in a separate goroutine.
func (s *Store) RunPeriodicCleanup(ctx context.Context, cleanupInterval time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RemoveExpired()
		}
	}
}

// lookup must be called under the lock.
func (s *Store) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if e.expired(s.nowFn()) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}
