/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package keytable provides a bounded in-memory table of per-key values with LRU eviction.
// Concurrent resolutions of a missing value are collapsed into one call.
package keytable
