/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/acronis/go-bucketgrid/store"
	"github.com/acronis/go-bucketgrid/store/storetest"
)

func TestStore(t *testing.T) {
	suite.Run(t, &storetest.Suite{NewStore: func(t *testing.T) store.Store { return New() }})
}

func TestStore_ExpirationWithManualClock(t *testing.T) {
	now := time.Unix(1000, 0)
	s := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	swapped, err := s.CompareAndSwapWithTTL(ctx, "key", nil, []byte("v1"), time.Minute)
	require.NoError(t, err)
	require.True(t, swapped)
	swapped, err = s.CompareAndSwap(ctx, "persistent", nil, []byte("v1"))
	require.NoError(t, err)
	require.True(t, swapped)

	now = now.Add(59 * time.Second)
	_, found, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.True(t, found)

	now = now.Add(time.Second)
	require.Equal(t, 1, s.RemoveExpired())
	require.Equal(t, 1, s.Len())
	_, found, err = s.Get(ctx, "key")
	require.NoError(t, err)
	require.False(t, found)
}

func TestStore_ValuesAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	val := []byte("value")
	_, err := s.CompareAndSwap(ctx, "key", nil, val)
	require.NoError(t, err)
	val[0] = 'X'

	got, _, err := s.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
	got[0] = 'Y'

	got, _, err = s.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestStore_ContextCanceled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Get(ctx, "key")
	require.ErrorIs(t, err, context.Canceled)
	_, err = s.CompareAndSwap(ctx, "key", nil, []byte("v"))
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 0, s.Len())
}

func TestStore_RunPeriodicCleanup(t *testing.T) {
	s := New()
	_, err := s.CompareAndSwapWithTTL(context.Background(), "key", nil, []byte("v"), time.Millisecond)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunPeriodicCleanup(ctx, 5*time.Millisecond)

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
}
