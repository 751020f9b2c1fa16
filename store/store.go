/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package store defines the contract of the external key-value storage
// where serialized bucket states are kept.
//
// The only write primitive is compare-and-swap, so any storage able to atomically
// replace a value when the current one matches the expected bytes may hold buckets.
// Implementations are located in subpackages.
package store

import (
	"context"
	"time"
)

// Store is a key-value storage with optimistic updates.
type Store interface {
	// Get returns the value stored under the key.
	// The second returned value is false if there is no value.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// CompareAndSwap atomically replaces the value under the key with newValue
	// if the current value equals expected. Nil expected means that the key must be absent.
	// It returns false without error if the current value does not match.
	CompareAndSwap(ctx context.Context, key string, expected, newValue []byte) (swapped bool, err error)
}

// ExpiringStore is a Store that supports per-key expiration.
type ExpiringStore interface {
	Store

	// CompareAndSwapWithTTL works like CompareAndSwap, but in case of success the stored value
	// expires after ttl. Non-positive ttl means no expiration.
	CompareAndSwapWithTTL(ctx context.Context, key string, expected, newValue []byte, ttl time.Duration) (swapped bool, err error)
}
