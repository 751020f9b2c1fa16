/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package storetest provides helpers for testing store implementations and their users:
// a conformance test suite and a store wrapper that counts calls and injects failures.
package storetest
