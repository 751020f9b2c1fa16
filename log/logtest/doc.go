/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides log.FieldLogger implementations for tests:
// Recorder keeps logged entries for assertions and NewLogger writes them to the test log.
package logtest
