/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package bigcachestore provides an in-process implementation of store.Store
// on top of github.com/allegro/bigcache.
//
// BigCache has no per-key expiration: all entries live for the same life window,
// so the store does not implement store.ExpiringStore.
package bigcachestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/allegro/bigcache/v3"
	"github.com/cespare/xxhash/v2"

	"github.com/acronis/go-bucketgrid/store"
)

// Default values for Options.
const (
	DefaultLifeWindow  = 24 * time.Hour
	DefaultCleanWindow = 5 * time.Minute
	DefaultShards      = 1024
	DefaultLockStripes = 256
)

// Options represents options for the Store.
type Options struct {
	// LifeWindow is the time after which an entry can be evicted.
	LifeWindow time.Duration
	// CleanWindow is the interval between removing expired entries. Zero disables the cleanup.
	CleanWindow time.Duration
	// Shards is the number of cache shards, must be a power of two.
	Shards int
	// HardMaxCacheSizeMB limits the cache size. Zero means no limit.
	HardMaxCacheSizeMB int
	// LockStripes is the number of mutexes serializing compare-and-swap operations.
	LockStripes int
}

// Store is a store.Store backed by BigCache.
// BigCache guarantees atomicity of single operations only,
// so read-compare-write sequences are serialized by striped mutexes.
type Store struct {
	cache *bigcache.BigCache
	locks []sync.Mutex
}

var _ store.Store = (*Store)(nil)

// New creates a new Store. The cache lives until ctx is done or Close is called.
func New(ctx context.Context, opts Options) (*Store, error) {
	if opts.LifeWindow == 0 {
		opts.LifeWindow = DefaultLifeWindow
	}
	if opts.Shards == 0 {
		opts.Shards = DefaultShards
	}
	if opts.LockStripes <= 0 {
		opts.LockStripes = DefaultLockStripes
	}

	cfg := bigcache.DefaultConfig(opts.LifeWindow)
	cfg.Shards = opts.Shards
	cfg.CleanWindow = opts.CleanWindow
	cfg.HardMaxCacheSize = opts.HardMaxCacheSizeMB
	cfg.Verbose = false
	cache, err := bigcache.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create bigcache: %w", err)
	}
	return &Store{cache: cache, locks: make([]sync.Mutex, opts.LockStripes)}, nil
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	return s.get(key)
}

// CompareAndSwap implements store.Store.
func (s *Store) CompareAndSwap(ctx context.Context, key string, expected, newValue []byte) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	mu := &s.locks[xxhash.Sum64String(key)%uint64(len(s.locks))]
	mu.Lock()
	defer mu.Unlock()

	cur, exists, err := s.get(key)
	if err != nil {
		return false, err
	}
	if expected == nil {
		if exists {
			return false, nil
		}
	} else if !exists || !bytes.Equal(cur, expected) {
		return false, nil
	}
	if err = s.cache.Set(key, newValue); err != nil {
		return false, fmt.Errorf("set bigcache entry: %w", err)
	}
	return true, nil
}

// Len returns the number of entries in the cache.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine and releases the cache.
func (s *Store) Close() error {
	return s.cache.Close()
}

func (s *Store) get(key string) ([]byte, bool, error) {
	val, resp, err := s.cache.GetWithInfo(key)
	if err != nil {
		if errors.Is(err, bigcache.ErrEntryNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get bigcache entry: %w", err)
	}
	if resp.EntryStatus == bigcache.Expired {
		return nil, false, nil
	}
	return val, true, nil
}
