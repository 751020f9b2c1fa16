/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/store"
	"github.com/acronis/go-bucketgrid/store/badgerstore"
	"github.com/acronis/go-bucketgrid/store/bigcachestore"
	"github.com/acronis/go-bucketgrid/store/memstore"
	"github.com/acronis/go-bucketgrid/store/radixstore"
	"github.com/acronis/go-bucketgrid/store/redisstore"
)

const badgerGCDiscardRatio = 0.5

const megabyte = 1024 * 1024

// openedStore is a store together with its background maintenance workers.
type openedStore struct {
	bucketStore store.Store
	workers     []unit
	close       func() error
}

func noopClose() error { return nil }

// openStore creates the store of the configured kind.
func openStore(ctx context.Context, cfg *StoreConfig, logger log.FieldLogger) (*openedStore, error) {
	switch cfg.Kind {
	case StoreKindMemory, "":
		s := memstore.New()
		cleanup := newWorkerUnit(func(ctx context.Context) {
			s.RunPeriodicCleanup(ctx, cfg.CleanupInterval)
		})
		return &openedStore{bucketStore: s, workers: []unit{cleanup}, close: noopClose}, nil

	case StoreKindBigcache:
		s, err := bigcachestore.New(ctx, bigcachestore.Options{
			LifeWindow:         cfg.Bigcache.LifeWindow,
			CleanWindow:        cfg.CleanupInterval,
			Shards:             cfg.Bigcache.Shards,
			HardMaxCacheSizeMB: int(cfg.Bigcache.HardMaxCacheSize / megabyte),
		})
		if err != nil {
			return nil, fmt.Errorf("create bigcache store: %w", err)
		}
		return &openedStore{bucketStore: s, close: s.Close}, nil

	case StoreKindRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    cfg.Addresses,
			PoolSize: cfg.PoolSize,
		})
		s := redisstore.New(client, redisstore.WithKeyPrefix(cfg.Namespace))
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		return &openedStore{bucketStore: s, close: client.Close}, nil

	case StoreKindRadix:
		s, err := radixstore.NewPool("tcp", cfg.Addresses[0], cfg.PoolSize, radixstore.WithKeyPrefix(cfg.Namespace))
		if err != nil {
			return nil, fmt.Errorf("create radix pool: %w", err)
		}
		return &openedStore{bucketStore: s, close: s.Close}, nil

	case StoreKindBadger:
		s, err := badgerstore.Open(badgerstore.Options{
			Dir:      cfg.Badger.Dir,
			InMemory: cfg.Badger.InMemory,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		var workers []unit
		if !cfg.Badger.InMemory {
			workers = append(workers, newWorkerUnit(func(ctx context.Context) {
				s.RunValueLogGC(ctx, cfg.Badger.GCInterval, badgerGCDiscardRatio)
			}))
		}
		return &openedStore{bucketStore: s, workers: workers, close: s.Close}, nil
	}
	return nil, fmt.Errorf("unknown store kind %q", cfg.Kind)
}
