/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package proxy

import (
	"context"
	"time"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/command"
)

// Future is a typed view of backend.Future.
type Future[T any] struct {
	future  *backend.Future
	convert func(command.Result) (T, error)
}

func newFuture[T any](f *backend.Future, convert func(command.Result) (T, error)) *Future[T] {
	return &Future[T]{future: f, convert: convert}
}

// Done returns a channel that is closed when the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.future.Done()
}

// Wait blocks until the result is available or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	res, err := f.future.Wait(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.convert(res)
}

// Result blocks until the result is available.
func (f *Future[T]) Result() (T, error) {
	return f.Wait(context.Background())
}

// OnComplete registers a callback that is called once the result is available.
func (f *Future[T]) OnComplete(cb func(T, error)) {
	f.future.OnComplete(func(res command.Result, err error) {
		if err != nil {
			var zero T
			cb(zero, err)
			return
		}
		cb(f.convert(res))
	})
}

// AsyncBucket is a non-blocking proxy of a distributed bucket.
// Methods return immediately, results are delivered through futures.
type AsyncBucket struct {
	key      string
	backend  backend.AsyncBackend
	supplier backend.ConfigurationSupplier
}

// Key returns the key under which the bucket is stored.
func (b *AsyncBucket) Key() string {
	return b.key
}

// TryConsume is the non-blocking version of Bucket.TryConsume.
func (b *AsyncBucket) TryConsume(ctx context.Context, tokens int64) *Future[bool] {
	return executeAsync(ctx, b, command.TryConsume{Tokens: tokens}, command.ValueAs[bool])
}

// ConsumeAsMuchAsPossible is the non-blocking version of Bucket.ConsumeAsMuchAsPossible.
func (b *AsyncBucket) ConsumeAsMuchAsPossible(ctx context.Context, limit int64) *Future[int64] {
	return executeAsync(ctx, b, command.ConsumeAsMuchAsPossible{Limit: limit}, command.ValueAs[int64])
}

// AddTokens is the non-blocking version of Bucket.AddTokens.
func (b *AsyncBucket) AddTokens(ctx context.Context, tokens int64) *Future[struct{}] {
	return executeAsync(ctx, b, command.AddTokens{Tokens: tokens}, ignoreValue)
}

// GetAvailableTokens is the non-blocking version of Bucket.GetAvailableTokens.
func (b *AsyncBucket) GetAvailableTokens(ctx context.Context) *Future[int64] {
	return executeAsync(ctx, b, command.GetAvailableTokens{}, command.ValueAs[int64])
}

// EstimateTimeToRefill is the non-blocking version of Bucket.EstimateTimeToRefill.
func (b *AsyncBucket) EstimateTimeToRefill(ctx context.Context, tokens int64) *Future[time.Duration] {
	cmd := command.EstimateTimeToRefill{BandwidthIndex: command.AllBandwidths, Tokens: tokens}
	return executeAsync(ctx, b, cmd, func(res command.Result) (time.Duration, error) {
		nanos, err := command.ValueAs[int64](res)
		return time.Duration(nanos), err
	})
}

// TryConsumeAndReturnRemaining is the non-blocking version of Bucket.TryConsumeAndReturnRemaining.
func (b *AsyncBucket) TryConsumeAndReturnRemaining(ctx context.Context, tokens int64) *Future[command.ConsumptionProbe] {
	return executeAsync(ctx, b, command.TryConsumeAndReturnRemaining{Tokens: tokens}, command.ValueAs[command.ConsumptionProbe])
}

// Reset is the non-blocking version of Bucket.Reset.
func (b *AsyncBucket) Reset(ctx context.Context) *Future[struct{}] {
	return executeAsync(ctx, b, command.Reset{}, ignoreValue)
}

// Execute executes an arbitrary command against the bucket.
func (b *AsyncBucket) Execute(ctx context.Context, cmd command.Command) *backend.Future {
	return b.backend.ExecuteAsync(ctx, backend.Request{Key: b.key, Command: cmd, Configuration: b.supplier})
}

func executeAsync[T any](
	ctx context.Context, b *AsyncBucket, cmd command.Command, convert func(command.Result) (T, error),
) *Future[T] {
	return newFuture(b.Execute(ctx, cmd), convert)
}

func ignoreValue(command.Result) (struct{}, error) {
	return struct{}{}, nil
}
