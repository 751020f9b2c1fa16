/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"sync"

	"github.com/acronis/go-bucketgrid/command"
)

// Future is the result of an asynchronous execution that becomes available later.
// A Future is completed exactly once, subsequent completions are ignored.
type Future struct {
	done chan struct{}

	mu        sync.Mutex
	completed bool
	res       command.Result
	err       error
	callbacks []func(command.Result, error)
}

// NewFuture creates a new not completed Future.
func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// CompletedFuture returns a Future that is already completed with the given result.
func CompletedFuture(res command.Result, err error) *Future {
	f := NewFuture()
	f.Complete(res, err)
	return f
}

// Complete sets the result and wakes up all waiters. It returns false if the future is already completed.
// Callbacks registered with OnComplete are called in the goroutine of the caller.
func (f *Future) Complete(res command.Result, err error) bool {
	f.mu.Lock()
	if f.completed {
		f.mu.Unlock()
		return false
	}
	f.completed = true
	f.res, f.err = res, err
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(res, err)
	}
	return true
}

// Done returns a channel that is closed when the future is completed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the future is completed or ctx is done.
func (f *Future) Wait(ctx context.Context) (command.Result, error) {
	select {
	case <-f.done:
		return f.Result()
	case <-ctx.Done():
		return command.Result{}, ctx.Err()
	}
}

// Result returns the result of the completed future.
// It blocks until the future is completed.
func (f *Future) Result() (command.Result, error) {
	<-f.done
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.res, f.err
}

// OnComplete registers a callback that is called once the future is completed.
// If the future is already completed, the callback is called immediately.
func (f *Future) OnComplete(cb func(command.Result, error)) {
	f.mu.Lock()
	if !f.completed {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	res, err := f.res, f.err
	f.mu.Unlock()
	cb(res, err)
}
