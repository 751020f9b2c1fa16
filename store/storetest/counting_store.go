/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package storetest

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/acronis/go-bucketgrid/store"
)

// CountingStore wraps a store, counts calls and allows to inject errors and hooks.
// It always implements store.ExpiringStore. If the wrapped store does not support expiration,
// CompareAndSwapWithTTL falls back to CompareAndSwap.
type CountingStore struct {
	Delegate store.Store

	gets       atomic.Int64
	swaps      atomic.Int64
	swapsWon   atomic.Int64
	swapsTTL   atomic.Int64
	lastTTL    atomic.Duration
	mu         sync.Mutex
	getErr     error
	swapErr    error
	beforeSwap func(ctx context.Context, key string)
}

var _ store.ExpiringStore = (*CountingStore)(nil)

// NewCountingStore creates a new CountingStore.
func NewCountingStore(delegate store.Store) *CountingStore {
	return &CountingStore{Delegate: delegate}
}

// Gets returns the number of Get calls.
func (s *CountingStore) Gets() int64 { return s.gets.Load() }

// Swaps returns the number of compare-and-swap calls (with and without TTL).
func (s *CountingStore) Swaps() int64 { return s.swaps.Load() }

// SwapsWon returns the number of compare-and-swap calls that replaced the value.
func (s *CountingStore) SwapsWon() int64 { return s.swapsWon.Load() }

// SwapsWithTTL returns the number of CompareAndSwapWithTTL calls with positive TTL.
func (s *CountingStore) SwapsWithTTL() int64 { return s.swapsTTL.Load() }

// LastTTL returns TTL passed to the last CompareAndSwapWithTTL call.
func (s *CountingStore) LastTTL() time.Duration { return s.lastTTL.Load() }

// Calls returns the total number of store calls.
func (s *CountingStore) Calls() int64 { return s.Gets() + s.Swaps() }

// FailGets makes all subsequent Get calls return err. Nil err stops failing.
func (s *CountingStore) FailGets(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getErr = err
}

// FailSwaps makes all subsequent compare-and-swap calls return err. Nil err stops failing.
func (s *CountingStore) FailSwaps(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.swapErr = err
}

// BeforeSwap sets a hook that is called before every compare-and-swap is delegated.
// It may be used to interleave a concurrent writer between a read and a write.
func (s *CountingStore) BeforeSwap(hook func(ctx context.Context, key string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beforeSwap = hook
}

// Get implements store.Store.
func (s *CountingStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.gets.Inc()
	s.mu.Lock()
	err := s.getErr
	s.mu.Unlock()
	if err != nil {
		return nil, false, err
	}
	return s.Delegate.Get(ctx, key)
}

// CompareAndSwap implements store.Store.
func (s *CountingStore) CompareAndSwap(ctx context.Context, key string, expected, newValue []byte) (bool, error) {
	return s.CompareAndSwapWithTTL(ctx, key, expected, newValue, 0)
}

// CompareAndSwapWithTTL implements store.ExpiringStore.
func (s *CountingStore) CompareAndSwapWithTTL(
	ctx context.Context, key string, expected, newValue []byte, ttl time.Duration,
) (bool, error) {
	s.swaps.Inc()
	if ttl > 0 {
		s.swapsTTL.Inc()
		s.lastTTL.Store(ttl)
	}

	s.mu.Lock()
	err, hook := s.swapErr, s.beforeSwap
	s.mu.Unlock()
	if err != nil {
		return false, err
	}
	if hook != nil {
		hook(ctx, key)
	}

	var swapped bool
	if expiring, ok := s.Delegate.(store.ExpiringStore); ok && ttl > 0 {
		swapped, err = expiring.CompareAndSwapWithTTL(ctx, key, expected, newValue, ttl)
	} else {
		swapped, err = s.Delegate.CompareAndSwap(ctx, key, expected, newValue)
	}
	if swapped {
		s.swapsWon.Inc()
	}
	return swapped, err
}
