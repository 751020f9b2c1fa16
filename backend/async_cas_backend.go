/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-bucketgrid/command"
	"github.com/acronis/go-bucketgrid/store"
)

// AsyncCASBackend is a non-blocking AsyncBackend that keeps bucket states in a store
// and updates them with compare-and-swap.
// Each attempt runs in its own goroutine, retries are scheduled with timers,
// so no goroutine is blocked while waiting for a backoff delay.
type AsyncCASBackend struct {
	engine
}

var _ AsyncBackend = (*AsyncCASBackend)(nil)

// NewAsyncCASBackend creates a new AsyncCASBackend.
func NewAsyncCASBackend(s store.Store, opts Options) *AsyncCASBackend {
	return &AsyncCASBackend{engine: newEngine(s, opts)}
}

// ExecuteAsync implements AsyncBackend.
func (b *AsyncCASBackend) ExecuteAsync(ctx context.Context, req Request) *Future {
	if err := req.Validate(); err != nil {
		return CompletedFuture(command.Result{}, err)
	}
	f := NewFuture()
	bo := b.opts.RetryPolicy.NewBackOff()
	go b.run(ctx, req, f, bo, 1)
	return f
}

func (b *AsyncCASBackend) run(ctx context.Context, req Request, f *Future, bo backoff.BackOff, attempt int) {
	if err := ctx.Err(); err != nil {
		f.Complete(command.Result{}, err)
		return
	}

	res, err := b.attempt(ctx, req)
	if !errors.Is(err, errCASConflict) {
		f.Complete(res, err)
		return
	}

	delay := bo.NextBackOff()
	if delay == backoff.Stop {
		f.Complete(command.Result{}, b.finalError(req.Key, attempt, err))
		return
	}
	b.logRetry(req.Key, attempt, delay)
	b.schedule(ctx, delay, f, func() { b.run(ctx, req, f, bo, attempt+1) })
}

// schedule calls fn after delay unless ctx is done earlier.
// In the latter case the future is completed with the context error immediately.
func (b *AsyncCASBackend) schedule(ctx context.Context, delay time.Duration, f *Future, fn func()) {
	stopWatching := context.AfterFunc(ctx, func() {
		f.Complete(command.Result{}, ctx.Err())
	})
	time.AfterFunc(delay, func() {
		if !stopWatching() {
			return
		}
		fn()
	})
}
