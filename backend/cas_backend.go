/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"time"

	"github.com/acronis/go-bucketgrid/command"
	"github.com/acronis/go-bucketgrid/retry"
	"github.com/acronis/go-bucketgrid/store"
)

// CASBackend is a blocking Backend that keeps bucket states in a store
// and updates them with compare-and-swap.
type CASBackend struct {
	engine
}

var _ Backend = (*CASBackend)(nil)

// NewCASBackend creates a new CASBackend.
func NewCASBackend(s store.Store, opts Options) *CASBackend {
	return &CASBackend{engine: newEngine(s, opts)}
}

// Execute implements Backend.
func (b *CASBackend) Execute(ctx context.Context, req Request) (command.Result, error) {
	if err := req.Validate(); err != nil {
		return command.Result{}, err
	}

	var res command.Result
	var attempts int
	notify := func(_ error, delay time.Duration) {
		b.logRetry(req.Key, attempts, delay)
	}
	err := retry.DoWithRetry(ctx, b.opts.RetryPolicy, isCASConflict, notify, func(ctx context.Context) error {
		attempts++
		var attemptErr error
		res, attemptErr = b.attempt(ctx, req)
		return attemptErr
	})
	if err != nil {
		return command.Result{}, b.finalError(req.Key, attempts, err)
	}
	return res, nil
}
