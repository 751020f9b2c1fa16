/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package wire contains helpers for the compact varint-based binary layout
// shared by persisted bucket states and serialized commands.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrUnexpectedEOF is returned when data ends before all expected values are read.
var ErrUnexpectedEOF = errors.New("unexpected end of data")

// Reader reads varint-encoded values from a byte slice and remembers the first error,
// so the caller may check it once after reading a whole record.
type Reader struct {
	data []byte
	err  error
}

// NewReader creates a new Reader.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Err returns the first error that occurred while reading.
func (r *Reader) Err() error {
	return r.err
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data)
}

// Byte reads a single byte.
func (r *Reader) Byte() byte {
	if r.err != nil {
		return 0
	}
	if len(r.data) == 0 {
		r.err = ErrUnexpectedEOF
		return 0
	}
	b := r.data[0]
	r.data = r.data[1:]
	return b
}

// Bool reads a boolean encoded as a single byte.
func (r *Reader) Bool() bool {
	switch b := r.Byte(); b {
	case 0:
		return false
	case 1:
		return true
	default:
		r.fail(fmt.Errorf("invalid bool value %d", b))
		return false
	}
}

// Uvarint reads an unsigned varint.
func (r *Reader) Uvarint() uint64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Uvarint(r.data)
	if n <= 0 {
		r.fail(errors.New("invalid uvarint"))
		return 0
	}
	r.data = r.data[n:]
	return v
}

// Varint reads a signed varint.
func (r *Reader) Varint() int64 {
	if r.err != nil {
		return 0
	}
	v, n := binary.Varint(r.data)
	if n <= 0 {
		r.fail(errors.New("invalid varint"))
		return 0
	}
	r.data = r.data[n:]
	return v
}

// Finish returns the first reading error, or an error if there are unread bytes.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if len(r.data) != 0 {
		return fmt.Errorf("%d trailing bytes", len(r.data))
	}
	return nil
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// AppendBool appends a boolean encoded as a single byte.
func AppendBool(buf []byte, v bool) []byte {
	if v {
		return append(buf, 1)
	}
	return append(buf, 0)
}
