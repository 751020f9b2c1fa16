/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package command

import (
	"fmt"

	"github.com/acronis/go-bucketgrid/bucket"
)

// TryConsume consumes Tokens if all bandwidths have enough of them.
// Result value is bool.
type TryConsume struct {
	Tokens int64
}

// TypeID implements Command.
func (c TryConsume) TypeID() TypeID { return TypeTryConsume }

// Validate implements Command.
func (c TryConsume) Validate() error { return validatePositive("tokens", c.Tokens) }

// Execute implements Command.
func (c TryConsume) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	gs, err := currentState(entry, nowNanos)
	if err != nil {
		return Result{}, err
	}
	if gs.State.AvailableTokens() < c.Tokens {
		return Result{Value: false}, nil
	}
	gs.State.Consume(c.Tokens)
	entry.Set(gs)
	return Result{Value: true, StateModified: true}, nil
}

// ConsumeAsMuchAsPossible consumes all available tokens but not more than Limit.
// Result value is the consumed amount (int64).
type ConsumeAsMuchAsPossible struct {
	Limit int64
}

// TypeID implements Command.
func (c ConsumeAsMuchAsPossible) TypeID() TypeID { return TypeConsumeAsMuchAsPossible }

// Validate implements Command.
func (c ConsumeAsMuchAsPossible) Validate() error { return validatePositive("limit", c.Limit) }

// Execute implements Command.
func (c ConsumeAsMuchAsPossible) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	gs, err := currentState(entry, nowNanos)
	if err != nil {
		return Result{}, err
	}
	toConsume := gs.State.AvailableTokens()
	if toConsume > c.Limit {
		toConsume = c.Limit
	}
	if toConsume <= 0 {
		return Result{Value: int64(0)}, nil
	}
	gs.State.Consume(toConsume)
	entry.Set(gs)
	return Result{Value: toConsume, StateModified: true}, nil
}

// AddTokens adds Tokens to every bandwidth, each clamped by its capacity.
type AddTokens struct {
	Tokens int64
}

// TypeID implements Command.
func (c AddTokens) TypeID() TypeID { return TypeAddTokens }

// Validate implements Command.
func (c AddTokens) Validate() error { return validatePositive("tokens", c.Tokens) }

// Execute implements Command.
func (c AddTokens) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	gs, err := currentState(entry, nowNanos)
	if err != nil {
		return Result{}, err
	}
	gs.State.AddTokens(gs.Configuration, c.Tokens)
	entry.Set(gs)
	return Result{StateModified: true}, nil
}

// GetAvailableTokens returns the amount of tokens available right now (int64).
// The refill is applied to a copy, the stored state is left as is.
type GetAvailableTokens struct{}

// TypeID implements Command.
func (c GetAvailableTokens) TypeID() TypeID { return TypeGetAvailableTokens }

// Validate implements Command.
func (c GetAvailableTokens) Validate() error { return nil }

// Execute implements Command.
func (c GetAvailableTokens) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	gs, err := currentState(entry, nowNanos)
	if err != nil {
		return Result{}, err
	}
	return Result{Value: gs.State.AvailableTokens()}, nil
}

// AllBandwidths may be used as EstimateTimeToRefill.BandwidthIndex
// to get the maximum estimation over all bandwidths.
const AllBandwidths = -1

// EstimateTimeToRefill returns how many nanoseconds (int64) the bandwidth needs
// to generate Tokens from scratch. Current token counts are not taken into account.
type EstimateTimeToRefill struct {
	BandwidthIndex int32
	Tokens         int64
}

// TypeID implements Command.
func (c EstimateTimeToRefill) TypeID() TypeID { return TypeEstimateTimeToRefill }

// Validate implements Command.
func (c EstimateTimeToRefill) Validate() error {
	if c.BandwidthIndex < AllBandwidths || c.BandwidthIndex >= bucket.MaxBandwidths {
		return fmt.Errorf("%w: bandwidth index %d is out of range", ErrInvalidArgument, c.BandwidthIndex)
	}
	return validatePositive("tokens", c.Tokens)
}

// Execute implements Command.
func (c EstimateTimeToRefill) Execute(entry MutableEntry, _ int64) (Result, error) {
	if !entry.Exists() {
		return Result{}, ErrStateAbsent
	}
	cfg := entry.Get().Configuration
	if c.BandwidthIndex == AllBandwidths {
		var res int64
		for _, bw := range cfg.Bandwidths {
			if nanos := bw.NanosToRefill(c.Tokens); nanos > res {
				res = nanos
			}
		}
		return Result{Value: res}, nil
	}
	if int(c.BandwidthIndex) >= len(cfg.Bandwidths) {
		return Result{}, fmt.Errorf("%w: bucket has %d bandwidth(s), index %d requested",
			ErrInvalidArgument, len(cfg.Bandwidths), c.BandwidthIndex)
	}
	return Result{Value: cfg.Bandwidths[c.BandwidthIndex].NanosToRefill(c.Tokens)}, nil
}

// TryConsumeAndReturnRemaining works like TryConsume but returns ConsumptionProbe
// with the remaining tokens and the time to wait when tokens are not enough.
type TryConsumeAndReturnRemaining struct {
	Tokens int64
}

// TypeID implements Command.
func (c TryConsumeAndReturnRemaining) TypeID() TypeID { return TypeTryConsumeAndReturnRemaining }

// Validate implements Command.
func (c TryConsumeAndReturnRemaining) Validate() error { return validatePositive("tokens", c.Tokens) }

// Execute implements Command.
func (c TryConsumeAndReturnRemaining) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	gs, err := currentState(entry, nowNanos)
	if err != nil {
		return Result{}, err
	}
	available := gs.State.AvailableTokens()
	if available < c.Tokens {
		probe := ConsumptionProbe{
			RemainingTokens:      available,
			NanosToWaitForRefill: gs.State.NanosToWaitForRefill(gs.Configuration, c.Tokens, nowNanos),
		}
		return Result{Value: probe}, nil
	}
	gs.State.Consume(c.Tokens)
	entry.Set(gs)
	probe := ConsumptionProbe{Consumed: true, RemainingTokens: gs.State.AvailableTokens()}
	return Result{Value: probe, StateModified: true}, nil
}

// Reset restores the initial amount of tokens in every bandwidth.
type Reset struct{}

// TypeID implements Command.
func (c Reset) TypeID() TypeID { return TypeReset }

// Validate implements Command.
func (c Reset) Validate() error { return nil }

// Execute implements Command.
func (c Reset) Execute(entry MutableEntry, nowNanos int64) (Result, error) {
	gs, err := currentState(entry, nowNanos)
	if err != nil {
		return Result{}, err
	}
	gs.State.Reset(gs.Configuration)
	entry.Set(gs)
	return Result{StateModified: true}, nil
}
