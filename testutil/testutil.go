/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil contains helpers for testing code that uses buckets, their metrics and HTTP endpoints.
package testutil

type tHelper interface {
	Helper()
}
