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

// Bucket is a blocking proxy of a distributed bucket.
// It holds no bucket state, every call is a round trip to the store.
type Bucket struct {
	key      string
	backend  backend.Backend
	supplier backend.ConfigurationSupplier
}

// Key returns the key under which the bucket is stored.
func (b *Bucket) Key() string {
	return b.key
}

// TryConsume consumes the given amount of tokens if all bandwidths have enough of them.
// It returns false and consumes nothing otherwise.
func (b *Bucket) TryConsume(ctx context.Context, tokens int64) (bool, error) {
	return execute[bool](ctx, b, command.TryConsume{Tokens: tokens})
}

// ConsumeAsMuchAsPossible consumes all available tokens, but not more than limit, and returns their amount.
func (b *Bucket) ConsumeAsMuchAsPossible(ctx context.Context, limit int64) (int64, error) {
	return execute[int64](ctx, b, command.ConsumeAsMuchAsPossible{Limit: limit})
}

// AddTokens adds tokens to every bandwidth. Tokens above capacity are lost.
func (b *Bucket) AddTokens(ctx context.Context, tokens int64) error {
	_, err := b.backend.Execute(ctx, b.request(command.AddTokens{Tokens: tokens}))
	return err
}

// GetAvailableTokens returns the amount of tokens that may be consumed right now.
func (b *Bucket) GetAvailableTokens(ctx context.Context) (int64, error) {
	return execute[int64](ctx, b, command.GetAvailableTokens{})
}

// EstimateTimeToRefill returns how long the slowest bandwidth takes to refill the given amount of tokens.
func (b *Bucket) EstimateTimeToRefill(ctx context.Context, tokens int64) (time.Duration, error) {
	nanos, err := execute[int64](ctx, b, command.EstimateTimeToRefill{BandwidthIndex: command.AllBandwidths, Tokens: tokens})
	return time.Duration(nanos), err
}

// TryConsumeAndReturnRemaining works like TryConsume,
// but also reports the remaining tokens and how long to wait if tokens were not consumed.
func (b *Bucket) TryConsumeAndReturnRemaining(ctx context.Context, tokens int64) (command.ConsumptionProbe, error) {
	return execute[command.ConsumptionProbe](ctx, b, command.TryConsumeAndReturnRemaining{Tokens: tokens})
}

// Reset restores the initial amount of tokens in every bandwidth.
func (b *Bucket) Reset(ctx context.Context) error {
	_, err := b.backend.Execute(ctx, b.request(command.Reset{}))
	return err
}

// Execute executes an arbitrary command, e.g. command.Multi, against the bucket.
func (b *Bucket) Execute(ctx context.Context, cmd command.Command) (command.Result, error) {
	return b.backend.Execute(ctx, b.request(cmd))
}

func (b *Bucket) request(cmd command.Command) backend.Request {
	return backend.Request{Key: b.key, Command: cmd, Configuration: b.supplier}
}

func execute[T any](ctx context.Context, b *Bucket, cmd command.Command) (T, error) {
	res, err := b.backend.Execute(ctx, b.request(cmd))
	if err != nil {
		var zero T
		return zero, err
	}
	return command.ValueAs[T](res)
}
