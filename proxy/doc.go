/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package proxy provides the application-facing API of distributed token buckets.
// Manager hands out lightweight per-key proxies; every method of a proxy is turned into a command
// that is executed against the shared store by the compare-and-swap backend.
package proxy
