/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bucket

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestState_ConsumeAndRefillScenario(t *testing.T) {
	cfg := MustConfiguration(Simple(10, time.Second))
	ms := int64(time.Millisecond)

	st := InitialState(cfg, 0)
	require.Equal(t, int64(10), st.AvailableTokens())

	st.Consume(10)
	require.Equal(t, int64(0), st.AvailableTokens())

	require.NoError(t, st.Refill(cfg, 500*ms))
	require.Equal(t, int64(5), st.AvailableTokens())
	st.Consume(5)
	require.Equal(t, int64(0), st.AvailableTokens())
}

func TestState_MultipleBandwidths(t *testing.T) {
	cfg := MustConfiguration(
		Simple(10, time.Second),
		Classic(100, 100, time.Minute).WithInitialTokens(3),
	)
	st := InitialState(cfg, 0)
	require.Equal(t, int64(3), st.AvailableTokens())

	st.Consume(2)
	require.Equal(t, []BandwidthState{{Tokens: 8}, {Tokens: 1}}, st.Bandwidths)

	// Each bandwidth is clamped by its own capacity.
	st.AddTokens(cfg, 50)
	require.Equal(t, []BandwidthState{{Tokens: 10}, {Tokens: 51}}, st.Bandwidths)
	require.Equal(t, int64(10), st.AvailableTokens())

	st.Reset(cfg)
	require.Equal(t, []BandwidthState{{Tokens: 10}, {Tokens: 3}}, st.Bandwidths)
}

func TestState_RefillReportsClockRegression(t *testing.T) {
	cfg := MustConfiguration(Simple(10, time.Second), Simple(100, time.Second))
	ms := int64(time.Millisecond)

	st := InitialState(cfg, 0)
	st.Consume(10)
	st.Bandwidths[1].LastRefillNanos = 1000 * ms

	err := st.Refill(cfg, 500*ms)
	require.True(t, errors.Is(err, ErrClockRegression))
	var regressionErr *ClockRegressionError
	require.ErrorAs(t, err, &regressionErr)
	require.Equal(t, 1, regressionErr.BandwidthIndex)

	// The first bandwidth is refilled, the regressed one is untouched.
	require.Equal(t, BandwidthState{Tokens: 5, LastRefillNanos: 500 * ms}, st.Bandwidths[0])
	require.Equal(t, BandwidthState{Tokens: 90, LastRefillNanos: 1000 * ms}, st.Bandwidths[1])
}

func TestState_TokenConservation(t *testing.T) {
	cfg := MustConfiguration(Classic(50, 5, time.Second).WithInitialTokens(20))
	ms := int64(time.Millisecond)

	st := InitialState(cfg, 0)
	var now int64
	expected := int64(20)
	lastRefill := int64(0)
	ops := []struct {
		advance int64
		consume int64
		add     int64
	}{
		{advance: 150 * ms, consume: 7},
		{advance: 200 * ms, add: 3},
		{advance: 999 * ms, consume: 4},
		{advance: 1 * ms, consume: 1},
		{advance: 5000 * ms, add: 100},
		{advance: 0, consume: 50},
	}
	for _, op := range ops {
		now += op.advance
		require.NoError(t, st.Refill(cfg, now))

		delta := (now - lastRefill) * 5 / int64(time.Second)
		if delta > 0 {
			expected = min(50, expected+delta)
			lastRefill = now
		}
		if op.consume > 0 && expected >= op.consume {
			st.Consume(op.consume)
			expected -= op.consume
		}
		if op.add > 0 {
			st.AddTokens(cfg, op.add)
			expected = min(50, expected+op.add)
		}
		require.Equal(t, expected, st.AvailableTokens())
	}
}

func TestState_NanosToWait(t *testing.T) {
	cfg := MustConfiguration(Simple(10, time.Second), Classic(20, 1, time.Second))
	st := InitialState(cfg, 0)
	st.Consume(10)

	require.Equal(t, int64(time.Second), st.NanosToWaitForRefill(cfg, 10, 0))
	require.Equal(t, int64(-1), st.NanosToWaitForRefill(cfg, 11, 0))
	require.Equal(t, int64(10*time.Second), st.NanosToFullRefill(cfg, 0))
}
