/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bucket

import (
	"errors"
	"fmt"
	"math"
)

// ErrClockRegression is returned (wrapped in ClockRegressionError) when refill observes a timestamp
// that is behind the last refill time of a bandwidth.
var ErrClockRegression = errors.New("clock regression detected")

// ClockRegressionError describes a detected clock regression.
type ClockRegressionError struct {
	BandwidthIndex  int
	LastRefillNanos int64
	NowNanos        int64
}

func (e *ClockRegressionError) Error() string {
	return fmt.Sprintf("%s: bandwidth #%d was refilled at %d, current time is %d",
		ErrClockRegression, e.BandwidthIndex, e.LastRefillNanos, e.NowNanos)
}

// Unwrap returns ErrClockRegression.
func (e *ClockRegressionError) Unwrap() error {
	return ErrClockRegression
}

// BandwidthState is a mutable state of a single bandwidth.
type BandwidthState struct {
	Tokens          int64
	LastRefillNanos int64
}

// State is a mutable state of a bucket, one entry per bandwidth in the same order as in Configuration.
type State struct {
	Bandwidths []BandwidthState
}

// InitialState returns the state of a freshly created bucket.
func InitialState(cfg Configuration, now int64) State {
	bws := make([]BandwidthState, len(cfg.Bandwidths))
	for i, bw := range cfg.Bandwidths {
		bws[i] = BandwidthState{Tokens: bw.InitialTokens, LastRefillNanos: now}
	}
	return State{Bandwidths: bws}
}

// Copy returns a deep copy of the state.
func (s State) Copy() State {
	return State{Bandwidths: append([]BandwidthState(nil), s.Bandwidths...)}
}

// Refill refills all bandwidths at the moment now.
// Bandwidths whose last refill time is ahead of now are left untouched,
// and ClockRegressionError for the first such bandwidth is returned.
// Other bandwidths are refilled in any case.
func (s *State) Refill(cfg Configuration, now int64) error {
	var regressionErr *ClockRegressionError
	for i, bw := range cfg.Bandwidths {
		st := &s.Bandwidths[i]
		tokens, lastRefill, regressed := bw.Refill(st.Tokens, st.LastRefillNanos, now)
		if regressed {
			if regressionErr == nil {
				regressionErr = &ClockRegressionError{BandwidthIndex: i, LastRefillNanos: st.LastRefillNanos, NowNanos: now}
			}
			continue
		}
		st.Tokens, st.LastRefillNanos = tokens, lastRefill
	}
	if regressionErr != nil {
		return regressionErr
	}
	return nil
}

// AvailableTokens returns the minimum amount of tokens over all bandwidths.
func (s State) AvailableTokens() int64 {
	res := int64(math.MaxInt64)
	for _, st := range s.Bandwidths {
		if st.Tokens < res {
			res = st.Tokens
		}
	}
	return res
}

// Consume subtracts tokens from every bandwidth.
// Caller is responsible for checking that enough tokens are available.
func (s *State) Consume(tokens int64) {
	for i := range s.Bandwidths {
		s.Bandwidths[i].Tokens -= tokens
	}
}

// AddTokens adds tokens to every bandwidth. Each bandwidth is clamped by its own capacity.
func (s *State) AddTokens(cfg Configuration, tokens int64) {
	for i, bw := range cfg.Bandwidths {
		s.Bandwidths[i].Tokens = bw.clampAdd(s.Bandwidths[i].Tokens, tokens)
	}
}

// Reset restores initial tokens of every bandwidth keeping refill times.
func (s *State) Reset(cfg Configuration) {
	for i, bw := range cfg.Bandwidths {
		s.Bandwidths[i].Tokens = bw.InitialTokens
	}
}

// NanosToWaitForRefill returns how long it takes until the given amount of tokens is available in all bandwidths.
// It returns -1 if the amount exceeds a capacity of any bandwidth.
func (s State) NanosToWaitForRefill(cfg Configuration, tokens, now int64) int64 {
	var res int64
	for i, bw := range cfg.Bandwidths {
		st := s.Bandwidths[i]
		wait := bw.NanosToWaitFor(st.Tokens, st.LastRefillNanos, now, tokens)
		if wait < 0 {
			return -1
		}
		if wait > res {
			res = wait
		}
	}
	return res
}

// NanosToFullRefill returns how long it takes until all bandwidths are full.
func (s State) NanosToFullRefill(cfg Configuration, now int64) int64 {
	var res int64
	for i, bw := range cfg.Bandwidths {
		st := s.Bandwidths[i]
		if wait := bw.NanosToWaitFor(st.Tokens, st.LastRefillNanos, now, bw.Capacity); wait > res {
			res = wait
		}
	}
	return res
}

// CompatibleWith reports whether the state has exactly one entry per bandwidth of the configuration.
func (s State) CompatibleWith(cfg Configuration) bool {
	return len(s.Bandwidths) == len(cfg.Bandwidths)
}
