/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bucket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGridState_Binary(t *testing.T) {
	cfg := MustConfiguration(Simple(10, time.Second), Classic(1000, 7, time.Hour).WithInitialTokens(0))
	gs := NewGridState(cfg, 12345)
	gs.State.Consume(-3) // negative values must survive encoding as well
	gs.State.Bandwidths[1].LastRefillNanos = -42

	data, err := gs.MarshalBinary()
	require.NoError(t, err)

	var decoded GridState
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.True(t, cfg.Equal(decoded.Configuration))
	require.Equal(t, gs.State, decoded.State)
}

func TestGridState_UnmarshalMalformed(t *testing.T) {
	cfg := MustConfiguration(Simple(10, time.Second))
	valid, err := NewGridState(cfg, 0).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "unknown version", data: append([]byte{42}, valid[1:]...)},
		{name: "zero bandwidths", data: []byte{gridStateFormatVersion, 0}},
		{name: "truncated", data: valid[:len(valid)-1]},
		{name: "trailing bytes", data: append(append([]byte{}, valid...), 1)},
		{name: "invalid configuration", data: []byte{gridStateFormatVersion, 1, 0, 2, 2, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gs GridState
			require.ErrorIs(t, gs.UnmarshalBinary(tt.data), ErrMalformedState)
		})
	}
}

func TestGridState_MarshalIncompatibleState(t *testing.T) {
	gs := GridState{Configuration: MustConfiguration(Simple(10, time.Second))}
	_, err := gs.MarshalBinary()
	require.Error(t, err)
}
