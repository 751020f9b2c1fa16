/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package command

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	cmd := Multi{Commands: []Command{
		TryConsume{Tokens: 1},
		ConsumeAsMuchAsPossible{Limit: 1 << 40},
		AddTokens{Tokens: 3},
		GetAvailableTokens{},
		EstimateTimeToRefill{BandwidthIndex: AllBandwidths, Tokens: 7},
		TryConsumeAndReturnRemaining{Tokens: 9},
		Reset{},
	}}
	data, err := Encode(cmd)
	require.NoError(t, err)
	require.Equal(t, byte(TypeMulti), data[0])

	decoded, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, cmd, decoded)

	data, err = Encode(TryConsume{Tokens: 2})
	require.NoError(t, err)
	require.Equal(t, []byte{byte(TypeTryConsume), 4}, data)
}

func TestEncode_Errors(t *testing.T) {
	_, err := Encode(nil)
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = Encode(Multi{Commands: []Command{Multi{}}})
	require.ErrorIs(t, err, ErrNestedMulti)
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "unknown type", data: []byte{0xEE}},
		{name: "zero type", data: []byte{0}},
		{name: "truncated varint", data: []byte{byte(TypeTryConsume), 0x80}},
		{name: "missing field", data: []byte{byte(TypeAddTokens)}},
		{name: "trailing bytes", data: []byte{byte(TypeReset), 1}},
		{name: "nested multi", data: []byte{byte(TypeMulti), 1, byte(TypeMulti), 0}},
		{name: "multi count too big", data: []byte{byte(TypeMulti), 100, byte(TypeReset)}},
		{name: "bandwidth index overflow", data: []byte{byte(TypeEstimateTimeToRefill), 0x80, 0x80, 0x80, 0x80, 0x20, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestEncodeDecodeResult(t *testing.T) {
	res := Result{
		StateModified: true,
		Value: []Result{
			{Value: true, StateModified: true},
			{Value: nil},
			{Value: int64(-42)},
			{Value: ConsumptionProbe{RemainingTokens: 3, NanosToWaitForRefill: 1000}},
		},
	}
	data, err := EncodeResult(res)
	require.NoError(t, err)
	decoded, err := DecodeResult(data)
	require.NoError(t, err)
	require.Equal(t, res, decoded)

	_, err = EncodeResult(Result{Value: "string"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = EncodeResult(Result{Value: []Result{{Value: []Result{}}}})
	require.ErrorIs(t, err, ErrNestedMulti)
}

func TestDecodeResult_Malformed(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{0},
		{2, valueKindNil},
		{0, 0xFF},
		{0, valueKindBool, 7},
		{0, valueKindProbe, 1, 2},
		{0, valueKindMulti, 1, 0, valueKindMulti, 0},
		{0, valueKindNil, 0},
	} {
		_, err := DecodeResult(data)
		require.ErrorIs(t, err, ErrMalformed, "%v", data)
	}
}
