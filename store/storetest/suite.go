/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/xid"
	"github.com/stretchr/testify/suite"

	"github.com/acronis/go-bucketgrid/store"
)

// DefaultExpirationTTL is the TTL used by expiration tests if Suite.ExpirationTTL is not set.
const DefaultExpirationTTL = 100 * time.Millisecond

// Suite is a conformance test suite for store implementations.
type Suite struct {
	suite.Suite

	// NewStore creates a store for a single test.
	NewStore func(t *testing.T) store.Store

	// ExpirationTTL is the TTL used by expiration tests.
	// Stores with coarse expiration granularity should set it accordingly.
	ExpirationTTL time.Duration

	Store store.Store
}

// SetupTest creates a fresh store.
func (s *Suite) SetupTest() {
	s.Store = s.NewStore(s.T())
}

// Key returns a unique key, so tests against shared external stores do not interfere.
func (s *Suite) Key() string {
	return "storetest:" + xid.New().String()
}

func (s *Suite) TestGetAbsent() {
	val, found, err := s.Store.Get(context.Background(), s.Key())
	s.Require().NoError(err)
	s.Require().False(found)
	s.Require().Nil(val)
}

func (s *Suite) TestInsertIfAbsent() {
	ctx := context.Background()
	key := s.Key()

	swapped, err := s.Store.CompareAndSwap(ctx, key, nil, []byte("v1"))
	s.Require().NoError(err)
	s.Require().True(swapped)

	swapped, err = s.Store.CompareAndSwap(ctx, key, nil, []byte("v2"))
	s.Require().NoError(err)
	s.Require().False(swapped, "insert must fail when the key exists")

	val, found, err := s.Store.Get(ctx, key)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal([]byte("v1"), val)
}

func (s *Suite) TestCompareAndSwap() {
	ctx := context.Background()
	key := s.Key()

	swapped, err := s.Store.CompareAndSwap(ctx, key, []byte("v0"), []byte("v1"))
	s.Require().NoError(err)
	s.Require().False(swapped, "swap must fail when the key is absent")

	_, err = s.Store.CompareAndSwap(ctx, key, nil, []byte("v1"))
	s.Require().NoError(err)

	swapped, err = s.Store.CompareAndSwap(ctx, key, []byte("stale"), []byte("v2"))
	s.Require().NoError(err)
	s.Require().False(swapped)

	swapped, err = s.Store.CompareAndSwap(ctx, key, []byte("v1"), []byte("v2"))
	s.Require().NoError(err)
	s.Require().True(swapped)

	val, found, err := s.Store.Get(ctx, key)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal([]byte("v2"), val)
}

func (s *Suite) TestKeysAreIndependent() {
	ctx := context.Background()
	key1, key2 := s.Key(), s.Key()

	_, err := s.Store.CompareAndSwap(ctx, key1, nil, []byte("a"))
	s.Require().NoError(err)
	swapped, err := s.Store.CompareAndSwap(ctx, key2, nil, []byte("b"))
	s.Require().NoError(err)
	s.Require().True(swapped)

	val, _, err := s.Store.Get(ctx, key1)
	s.Require().NoError(err)
	s.Require().Equal([]byte("a"), val)
}

func (s *Suite) TestConcurrentSwapsHaveSingleWinner() {
	ctx := context.Background()
	key := s.Key()
	_, err := s.Store.CompareAndSwap(ctx, key, nil, []byte("initial"))
	s.Require().NoError(err)

	const writers = 10
	var wg sync.WaitGroup
	results := make([]bool, writers)
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.Store.CompareAndSwap(ctx, key, []byte("initial"), []byte(fmt.Sprintf("writer-%d", i)))
		}(i)
	}
	wg.Wait()

	var winners int
	for i := range results {
		s.Require().NoError(errs[i])
		if results[i] {
			winners++
		}
	}
	s.Require().Equal(1, winners)
}

func (s *Suite) TestCompareAndSwapWithTTL() {
	expiring, ok := s.Store.(store.ExpiringStore)
	if !ok {
		s.T().Skip("store does not support per-key expiration")
	}
	ttl := s.ExpirationTTL
	if ttl == 0 {
		ttl = DefaultExpirationTTL
	}
	ctx := context.Background()
	key, persistentKey := s.Key(), s.Key()

	swapped, err := expiring.CompareAndSwapWithTTL(ctx, key, nil, []byte("v1"), ttl)
	s.Require().NoError(err)
	s.Require().True(swapped)
	swapped, err = expiring.CompareAndSwapWithTTL(ctx, persistentKey, nil, []byte("v1"), 0)
	s.Require().NoError(err)
	s.Require().True(swapped)

	val, found, err := s.Store.Get(ctx, key)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Require().Equal([]byte("v1"), val)

	s.Require().Eventually(func() bool {
		_, found, err = s.Store.Get(ctx, key)
		return err == nil && !found
	}, 3*ttl+time.Second, ttl/10)

	_, found, err = s.Store.Get(ctx, persistentKey)
	s.Require().NoError(err)
	s.Require().True(found)

	// Expired key is treated as absent.
	swapped, err = expiring.CompareAndSwapWithTTL(ctx, key, nil, []byte("v2"), ttl)
	s.Require().NoError(err)
	s.Require().True(swapped)
}
