/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package backend executes remote commands against bucket states kept in an external store.
//
// CASBackend and AsyncCASBackend implement optimistic concurrency: the state is read,
// the command is executed locally and the new state is written back with compare-and-swap.
// When another writer wins the race, the attempt is discarded and repeated after a backoff
// delay. The blocking (Backend) and the non-blocking (AsyncBackend) flavors share the same
// state machine and may be adapted to each other with SyncToAsync and AsyncToSync.
package backend
