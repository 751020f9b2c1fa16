/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package radixstore provides an implementation of store.ExpiringStore
// on top of github.com/mediocregopher/radix.
// It shares the compare-and-swap Lua script with the go-redis based store.
package radixstore

import (
	"context"
	"fmt"
	"time"

	"github.com/mediocregopher/radix/v3"

	"github.com/acronis/go-bucketgrid/store"
	"github.com/acronis/go-bucketgrid/store/internal/casscript"
)

var compareAndSwapScript = radix.NewEvalScript(1, casscript.Source)

// Store is a store.ExpiringStore backed by Redis through a radix client (pool, cluster or sentinel).
type Store struct {
	client    radix.Client
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

// New creates a new Store.
func New(client radix.Client, options ...Option) *Store {
	s := &Store{client: client}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// NewPool creates a radix connection pool of the given size and a Store on top of it.
func NewPool(network, addr string, size int, options ...Option) (*Store, error) {
	pool, err := radix.NewPool(network, addr, size)
	if err != nil {
		return nil, fmt.Errorf("create radix pool: %w", err)
	}
	return New(pool, options...), nil
}

// Get implements store.Store.
// Radix does not accept a context, so ctx is checked only before the call.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var val []byte
	mn := radix.MaybeNil{Rcv: &val}
	if err := s.client.Do(radix.Cmd(&mn, "GET", s.keyPrefix+key)); err != nil {
		return nil, false, fmt.Errorf("radix get: %w", err)
	}
	if mn.Nil {
		return nil, false, nil
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
	if err := ctx.Err(); err != nil {
		return false, err
	}
	var res int
	if err := s.client.Do(compareAndSwapScript.FlatCmd(&res, []string{s.keyPrefix + key},
		casscript.Args(expected, newValue, ttl)...)); err != nil {
		return false, fmt.Errorf("radix compare-and-swap: %w", err)
	}
	return res == 1, nil
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}
