/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreUnavailable is matched by every error caused by a failed store call.
	ErrStoreUnavailable = errors.New("store is unavailable")

	// ErrSerialization is returned when the stored state cannot be decoded or the new state cannot be encoded.
	// Nothing is written in this case.
	ErrSerialization = errors.New("bucket state serialization failed")

	// ErrCASRetriesExhausted is returned when the retry policy gives up after compare-and-swap conflicts.
	ErrCASRetriesExhausted = errors.New("compare-and-swap retries exhausted")
)

// errCASConflict means that the state was changed by a concurrent writer.
// It never leaves the package.
var errCASConflict = errors.New("compare-and-swap conflict")

// Store operation names used in errors, logs and metrics.
const (
	StoreOpGet            = "get"
	StoreOpCompareAndSwap = "compare_and_swap"
)

// StoreError is returned when a store call fails.
type StoreError struct {
	Op  string
	Key string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s for key %q: %v", e.Op, e.Key, e.Err)
}

// Unwrap returns the underlying store error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStoreUnavailable) true for every StoreError.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// ConfigurationError is returned when the configuration supplier fails
// or returns an invalid configuration.
type ConfigurationError struct {
	Key string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("get configuration for key %q: %v", e.Key, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}
