/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package casscript contains the Lua script implementing compare-and-swap in Redis.
package casscript

import (
	_ "embed" // for embedding the script
	"time"
)

// Source is the script text. It takes one key and the arguments built by Args.
//
//go:embed compare_and_swap.lua
var Source string

// Args builds the script arguments.
func Args(expected, newValue []byte, ttl time.Duration) []interface{} {
	expectExists := "1"
	if expected == nil {
		expectExists, expected = "0", []byte{}
	}
	var ttlMillis int64
	if ttl > 0 {
		ttlMillis = ttl.Milliseconds()
		if ttlMillis == 0 {
			ttlMillis = 1
		}
	}
	return []interface{}{expectExists, expected, newValue, ttlMillis}
}
