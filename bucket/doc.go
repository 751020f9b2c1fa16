/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package bucket contains the token-bucket arithmetic: bandwidth limits, their refill model,
// and the mutable per-key state that is persisted in an external store.
//
// Nothing in this package reads a clock. Every operation that depends on time receives
// the current timestamp (in nanoseconds) from the caller, so that refill and consumption
// within one execution observe the same instant.
package bucket
