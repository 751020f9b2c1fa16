/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package redisstore provides an implementation of store.ExpiringStore
// on top of github.com/redis/go-redis.
// Compare-and-swap is executed atomically on the server side by a Lua script.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-bucketgrid/store"
	"github.com/acronis/go-bucketgrid/store/internal/casscript"
)

var compareAndSwapScript = redis.NewScript(casscript.Source)

// Store is a store.ExpiringStore backed by Redis.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
}

var _ store.ExpiringStore = (*Store)(nil)

// Option is a functional option for Store.
type Option func(*Store)

// WithKeyPrefix sets a prefix that is prepended to all keys.
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) {
		s.keyPrefix = prefix
	}
}

// New creates a new Store. The client may be a single node, sentinel or cluster client.
func New(client redis.UniversalClient, options ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

// CompareAndSwap implements store.Store.
func (s *Store) CompareAndSwap(ctx context.Context, key string, expected, newValue []byte) (bool, error) {
	return s.CompareAndSwapWithTTL(ctx, key, expected, newValue, 0)
}

// CompareAndSwapWithTTL implements store.ExpiringStore.
func (s *Store) CompareAndSwapWithTTL(
	ctx context.Context, key string, expected, newValue []byte, ttl time.Duration,
) (bool, error) {
	res, err := compareAndSwapScript.Run(ctx, s.client, []string{s.keyPrefix + key},
		casscript.Args(expected, newValue, ttl)...).Int()
	if err != nil {
		return false, fmt.Errorf("redis compare-and-swap: %w", err)
	}
	return res == 1, nil
}

// Ping checks the connection to Redis.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
