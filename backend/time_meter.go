/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// TimeMeter is a source of current time for refill computations.
// All processes sharing a store should use synchronized clocks.
type TimeMeter interface {
	CurrentTimeNanos() int64
}

// SystemTimeMeter reads the wall clock.
type SystemTimeMeter struct{}

// CurrentTimeNanos implements TimeMeter.
func (SystemTimeMeter) CurrentTimeNanos() int64 {
	return time.Now().UnixNano()
}

// ManualTimeMeter is a TimeMeter that is moved only explicitly. It is useful in tests.
type ManualTimeMeter struct {
	nanos atomic.Int64
}

// NewManualTimeMeter creates a new ManualTimeMeter showing the given time.
func NewManualTimeMeter(nanos int64) *ManualTimeMeter {
	m := &ManualTimeMeter{}
	m.nanos.Store(nanos)
	return m
}

// CurrentTimeNanos implements TimeMeter.
func (m *ManualTimeMeter) CurrentTimeNanos() int64 {
	return m.nanos.Load()
}

// Set sets the current time.
func (m *ManualTimeMeter) Set(nanos int64) {
	m.nanos.Store(nanos)
}

// Add moves the current time. Negative d moves the clock backwards.
func (m *ManualTimeMeter) Add(d time.Duration) {
	m.nanos.Add(int64(d))
}

// ClockRegressionPolicy defines what happens when the current time is behind the last refill time of a bucket.
type ClockRegressionPolicy int

// Clock regression policies.
const (
	// ClockRegressionSkip skips refill for affected bandwidths and executes the command.
	ClockRegressionSkip ClockRegressionPolicy = iota
	// ClockRegressionFail fails the command with an error matching bucket.ErrClockRegression.
	ClockRegressionFail
)

func (p ClockRegressionPolicy) String() string {
	switch p {
	case ClockRegressionSkip:
		return "skip"
	case ClockRegressionFail:
		return "fail"
	}
	return fmt.Sprintf("unknown(%d)", int(p))
}

// ParseClockRegressionPolicy parses the policy name ("skip" or "fail").
func ParseClockRegressionPolicy(s string) (ClockRegressionPolicy, error) {
	switch strings.ToLower(s) {
	case "", "skip":
		return ClockRegressionSkip, nil
	case "fail":
		return ClockRegressionFail, nil
	}
	return 0, fmt.Errorf("unknown clock regression policy %q", s)
}
