/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package command

import (
	"errors"
	"fmt"
	"time"

	"github.com/acronis/go-bucketgrid/bucket"
)

// TypeID is a stable identifier of a command type used in the wire format.
type TypeID uint8

// Command type identifiers. Values must never be changed or reused.
const (
	TypeTryConsume                   TypeID = 1
	TypeConsumeAsMuchAsPossible      TypeID = 2
	TypeAddTokens                    TypeID = 3
	TypeGetAvailableTokens           TypeID = 4
	TypeEstimateTimeToRefill         TypeID = 5
	TypeTryConsumeAndReturnRemaining TypeID = 6
	TypeReset                        TypeID = 7
	TypeMulti                        TypeID = 8
)

func (id TypeID) String() string {
	switch id {
	case TypeTryConsume:
		return "try_consume"
	case TypeConsumeAsMuchAsPossible:
		return "consume_as_much_as_possible"
	case TypeAddTokens:
		return "add_tokens"
	case TypeGetAvailableTokens:
		return "get_available_tokens"
	case TypeEstimateTimeToRefill:
		return "estimate_time_to_refill"
	case TypeTryConsumeAndReturnRemaining:
		return "try_consume_and_return_remaining"
	case TypeReset:
		return "reset"
	case TypeMulti:
		return "multi"
	}
	return fmt.Sprintf("unknown(%d)", uint8(id))
}

var (
	// ErrInvalidArgument is returned when a command has invalid parameters.
	ErrInvalidArgument = errors.New("invalid command argument")

	// ErrStateAbsent is returned when a command is executed against an entry without state.
	ErrStateAbsent = errors.New("bucket state is absent")

	// ErrUnexpectedResult is returned when a result value has an unexpected type.
	ErrUnexpectedResult = errors.New("unexpected command result")
)

// MutableEntry is a mutable view of the bucket state a command operates on.
type MutableEntry interface {
	// Exists reports whether the state exists.
	Exists() bool

	// Get returns a copy of the current state. It must be called only if Exists returns true.
	Get() bucket.GridState

	// Set replaces the current state.
	Set(state bucket.GridState)

	// ExpireAfter marks the entry to be expired by the store after the given duration.
	ExpireAfter(ttl time.Duration)
}

// ClockRegressionHandler may be implemented by a MutableEntry to decide what to do
// when a command observes a clock regression during refill.
// Returning nil means that the command proceeds with the refill skipped for regressed bandwidths.
type ClockRegressionHandler interface {
	HandleClockRegression(err error) error
}

// Command is a serializable operation on a bucket state.
type Command interface {
	// TypeID returns the stable identifier of the command type.
	TypeID() TypeID

	// Validate checks command parameters before the command is sent anywhere.
	Validate() error

	// Execute runs the command against the entry at the given moment.
	Execute(entry MutableEntry, nowNanos int64) (Result, error)

	appendFields(buf []byte) ([]byte, error)
}

// Result is the outcome of a command execution.
// Value is one of: nil, bool, int64, ConsumptionProbe, []Result.
type Result struct {
	Value         interface{}
	StateModified bool
}

// ValueAs returns the result value converted to T.
func ValueAs[T any](res Result) (T, error) {
	v, ok := res.Value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedResult, res.Value, zero)
	}
	return v, nil
}

// ConsumptionProbe describes the outcome of TryConsumeAndReturnRemaining.
type ConsumptionProbe struct {
	Consumed             bool
	RemainingTokens      int64
	NanosToWaitForRefill int64
}

// currentState returns a copy of the entry state refilled at the moment now.
func currentState(entry MutableEntry, now int64) (bucket.GridState, error) {
	if !entry.Exists() {
		return bucket.GridState{}, ErrStateAbsent
	}
	gs := entry.Get()
	if err := gs.State.Refill(gs.Configuration, now); err != nil {
		h, ok := entry.(ClockRegressionHandler)
		if !ok || !errors.Is(err, bucket.ErrClockRegression) {
			return gs, nil
		}
		if hErr := h.HandleClockRegression(err); hErr != nil {
			return bucket.GridState{}, hErr
		}
	}
	return gs, nil
}

func validatePositive(name string, v int64) error {
	if v <= 0 {
		return fmt.Errorf("%w: %s must be positive, got %d", ErrInvalidArgument, name, v)
	}
	return nil
}
