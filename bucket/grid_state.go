/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bucket

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/acronis/go-bucketgrid/internal/wire"
)

// ErrMalformedState is returned when a persisted bucket state cannot be decoded.
var ErrMalformedState = errors.New("malformed bucket state")

const gridStateFormatVersion byte = 1

// GridState is the unit persisted under a key in the external store:
// the bucket configuration together with its current state.
type GridState struct {
	Configuration Configuration
	State         State
}

// NewGridState builds the state of a freshly created bucket.
func NewGridState(cfg Configuration, now int64) GridState {
	return GridState{Configuration: cfg, State: InitialState(cfg, now)}
}

// Copy returns a deep copy of the grid state.
func (gs GridState) Copy() GridState {
	return GridState{
		Configuration: Configuration{Bandwidths: append([]Bandwidth(nil), gs.Configuration.Bandwidths...)},
		State:         gs.State.Copy(),
	}
}

// MarshalBinary encodes the grid state.
// Implements encoding.BinaryMarshaler interface.
func (gs GridState) MarshalBinary() ([]byte, error) {
	if !gs.State.CompatibleWith(gs.Configuration) {
		return nil, fmt.Errorf("state has %d bandwidths, configuration has %d",
			len(gs.State.Bandwidths), len(gs.Configuration.Bandwidths))
	}
	buf := make([]byte, 0, 2+len(gs.Configuration.Bandwidths)*6*binary.MaxVarintLen64)
	buf = append(buf, gridStateFormatVersion)
	buf = binary.AppendUvarint(buf, uint64(len(gs.Configuration.Bandwidths)))
	for _, bw := range gs.Configuration.Bandwidths {
		buf = binary.AppendVarint(buf, bw.Capacity)
		buf = binary.AppendVarint(buf, bw.RefillPeriodNanos)
		buf = binary.AppendVarint(buf, bw.RefillTokensPerPeriod)
		buf = binary.AppendVarint(buf, bw.InitialTokens)
	}
	for _, st := range gs.State.Bandwidths {
		buf = binary.AppendVarint(buf, st.Tokens)
		buf = binary.AppendVarint(buf, st.LastRefillNanos)
	}
	return buf, nil
}

// UnmarshalBinary decodes the grid state.
// Implements encoding.BinaryUnmarshaler interface.
func (gs *GridState) UnmarshalBinary(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty data", ErrMalformedState)
	}
	r := wire.NewReader(data)
	if version := r.Byte(); version != gridStateFormatVersion {
		return fmt.Errorf("%w: unsupported format version %d", ErrMalformedState, version)
	}
	n := r.Uvarint()
	if r.Err() != nil {
		return fmt.Errorf("%w: %v", ErrMalformedState, r.Err())
	}
	if n == 0 || n > MaxBandwidths {
		return fmt.Errorf("%w: invalid number of bandwidths %d", ErrMalformedState, n)
	}
	cfg := Configuration{Bandwidths: make([]Bandwidth, n)}
	for i := range cfg.Bandwidths {
		cfg.Bandwidths[i] = Bandwidth{
			Capacity:              r.Varint(),
			RefillPeriodNanos:     r.Varint(),
			RefillTokensPerPeriod: r.Varint(),
			InitialTokens:         r.Varint(),
		}
	}
	state := State{Bandwidths: make([]BandwidthState, n)}
	for i := range state.Bandwidths {
		state.Bandwidths[i] = BandwidthState{Tokens: r.Varint(), LastRefillNanos: r.Varint()}
	}
	if err := r.Finish(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	gs.Configuration = cfg
	gs.State = state
	return nil
}
