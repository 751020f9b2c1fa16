/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"context"
	"fmt"

	"github.com/acronis/go-bucketgrid/bucket"
	"github.com/acronis/go-bucketgrid/command"
)

// ConfigurationSupplier provides the configuration of a bucket.
// It is called only when the bucket state does not exist yet.
type ConfigurationSupplier func(ctx context.Context) (bucket.Configuration, error)

// StaticConfiguration returns a ConfigurationSupplier that always returns cfg.
func StaticConfiguration(cfg bucket.Configuration) ConfigurationSupplier {
	return func(context.Context) (bucket.Configuration, error) {
		return cfg, nil
	}
}

// Request is a command addressed to the bucket stored under Key.
type Request struct {
	Key           string
	Command       command.Command
	Configuration ConfigurationSupplier
}

// Validate checks that the request is complete and the command arguments are valid.
func (r Request) Validate() error {
	if r.Key == "" {
		return fmt.Errorf("%w: key is empty", command.ErrInvalidArgument)
	}
	if r.Command == nil {
		return fmt.Errorf("%w: command is nil", command.ErrInvalidArgument)
	}
	if r.Configuration == nil {
		return fmt.Errorf("%w: configuration supplier is nil", command.ErrInvalidArgument)
	}
	return r.Command.Validate()
}

// Backend executes requests and blocks until the result is known.
type Backend interface {
	Execute(ctx context.Context, req Request) (command.Result, error)
}

// AsyncBackend executes requests without blocking the caller.
type AsyncBackend interface {
	ExecuteAsync(ctx context.Context, req Request) *Future
}

// The ExecuteFunc type is an adapter to allow the use of ordinary functions as Backend.
type ExecuteFunc func(ctx context.Context, req Request) (command.Result, error)

// Execute implements Backend.
func (f ExecuteFunc) Execute(ctx context.Context, req Request) (command.Result, error) {
	return f(ctx, req)
}

// The ExecuteAsyncFunc type is an adapter to allow the use of ordinary functions as AsyncBackend.
type ExecuteAsyncFunc func(ctx context.Context, req Request) *Future

// ExecuteAsync implements AsyncBackend.
func (f ExecuteAsyncFunc) ExecuteAsync(ctx context.Context, req Request) *Future {
	return f(ctx, req)
}

// SyncToAsync adapts a blocking backend to the non-blocking interface.
// Every request is executed in a separate goroutine.
func SyncToAsync(b Backend) AsyncBackend {
	if a, ok := b.(asyncToSync); ok {
		return a.async
	}
	return syncToAsync{b}
}

// AsyncToSync adapts a non-blocking backend to the blocking interface.
// Execute returns as soon as the future is completed or ctx is done.
func AsyncToSync(a AsyncBackend) Backend {
	if s, ok := a.(syncToAsync); ok {
		return s.sync
	}
	return asyncToSync{a}
}

type syncToAsync struct {
	sync Backend
}

func (b syncToAsync) ExecuteAsync(ctx context.Context, req Request) *Future {
	f := NewFuture()
	go func() {
		f.Complete(b.sync.Execute(ctx, req))
	}()
	return f
}

type asyncToSync struct {
	async AsyncBackend
}

func (b asyncToSync) Execute(ctx context.Context, req Request) (command.Result, error) {
	return b.async.ExecuteAsync(ctx, req).Wait(ctx)
}
