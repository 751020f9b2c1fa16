/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package badgerstore provides an implementation of store.ExpiringStore
// on top of the embedded github.com/dgraph-io/badger key-value database.
//
// Compare-and-swap runs inside an update transaction. Badger detects conflicting
// concurrent transactions on commit, and such a conflict is reported as a failed swap.
// Badger stores expiration time with a one second granularity, TTL is rounded up.
package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/store"
)

// Store is a store.ExpiringStore backed by Badger.
type Store struct {
	db *badger.DB
}

var _ store.ExpiringStore = (*Store)(nil)

// Options represents options for opening Badger database.
type Options struct {
	// Dir is the directory of the database. It is ignored if InMemory is true.
	Dir string
	// InMemory enables the in-memory mode without persistence.
	InMemory bool
	// SyncWrites makes every write to be synced to disk.
	SyncWrites bool
	// Logger receives messages of Badger itself prefixed with "badger: ". Disabled if nil.
	Logger log.FieldLogger
}

// Open opens (or creates) a Badger database and returns a Store on top of it.
func Open(opts Options) (*Store, error) {
	badgerOpts := badger.DefaultOptions(opts.Dir).
		WithInMemory(opts.InMemory).
		WithSyncWrites(opts.SyncWrites).
		WithLogger(newBadgerLogger(opts.Logger))
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("")
	}
	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

// New creates a Store on top of the already opened database.
func New(db *badger.DB) *Store {
	return &Store{db: db}
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		val, err = getValue(txn, key)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("badger get: %w", err)
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
	var swapped bool
	err := s.db.Update(func(txn *badger.Txn) error {
		cur, err := getValue(txn, key)
		exists := true
		if err != nil {
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			exists = false
		}
		if expected == nil {
			if exists {
				return nil
			}
		} else if !exists || !bytes.Equal(cur, expected) {
			return nil
		}

		entry := badger.NewEntry([]byte(key), bytes.Clone(newValue))
		if ttl > 0 {
			entry.ExpiresAt = expiresAtUnix(time.Now().Add(ttl))
		}
		if err = txn.SetEntry(entry); err != nil {
			return err
		}
		swapped = true
		return nil
	})
	if err != nil {
		if errors.Is(err, badger.ErrConflict) {
			return false, nil
		}
		return false, fmt.Errorf("badger compare-and-swap: %w", err)
	}
	return swapped, nil
}

// RunValueLogGC runs garbage collection of the value log until ctx is done.
// It's supposed to be run in a separate goroutine.
func (s *Store) RunValueLogGC(ctx context.Context, interval time.Duration, discardRatio float64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for s.db.RunValueLogGC(discardRatio) == nil {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// expiresAtUnix rounds the expiration time up to whole seconds,
// so an entry never expires earlier than requested.
func expiresAtUnix(t time.Time) uint64 {
	secs := t.Unix()
	if t.Nanosecond() > 0 {
		secs++
	}
	return uint64(secs)
}

func getValue(txn *badger.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}
