/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package command

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/acronis/go-bucketgrid/internal/wire"
)

// ErrMalformed is returned when a command or a result cannot be decoded.
var ErrMalformed = errors.New("malformed command data")

// Result value kinds used in the wire format.
const (
	valueKindNil   byte = 0
	valueKindBool  byte = 1
	valueKindInt64 byte = 2
	valueKindProbe byte = 3
	valueKindMulti byte = 4
)

// Encode serializes the command: type id byte followed by its fields.
func Encode(cmd Command) ([]byte, error) {
	if cmd == nil {
		return nil, fmt.Errorf("%w: command is nil", ErrInvalidArgument)
	}
	buf := make([]byte, 0, 16)
	buf = append(buf, byte(cmd.TypeID()))
	return cmd.appendFields(buf)
}

// Decode reconstructs the command encoded by Encode.
func Decode(data []byte) (Command, error) {
	r := wire.NewReader(data)
	cmd, err := decodeCommand(r, true)
	if err != nil {
		return nil, err
	}
	if err = r.Finish(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return cmd, nil
}

func decodeCommand(r *wire.Reader, allowMulti bool) (Command, error) {
	typeID := TypeID(r.Byte())
	var cmd Command
	switch typeID {
	case TypeTryConsume:
		cmd = TryConsume{Tokens: r.Varint()}
	case TypeConsumeAsMuchAsPossible:
		cmd = ConsumeAsMuchAsPossible{Limit: r.Varint()}
	case TypeAddTokens:
		cmd = AddTokens{Tokens: r.Varint()}
	case TypeGetAvailableTokens:
		cmd = GetAvailableTokens{}
	case TypeEstimateTimeToRefill:
		idx := r.Varint()
		cmd = EstimateTimeToRefill{BandwidthIndex: int32(idx), Tokens: r.Varint()}
		if int64(int32(idx)) != idx {
			return nil, fmt.Errorf("%w: bandwidth index %d overflows", ErrMalformed, idx)
		}
	case TypeTryConsumeAndReturnRemaining:
		cmd = TryConsumeAndReturnRemaining{Tokens: r.Varint()}
	case TypeReset:
		cmd = Reset{}
	case TypeMulti:
		if !allowMulti {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, ErrNestedMulti)
		}
		multi, err := decodeMulti(r)
		if err != nil {
			return nil, err
		}
		cmd = multi
	default:
		if r.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, r.Err())
		}
		return nil, fmt.Errorf("%w: unknown command type id %d", ErrMalformed, uint8(typeID))
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("%w: decode %s command: %w", ErrMalformed, typeID, r.Err())
	}
	return cmd, nil
}

func decodeMulti(r *wire.Reader) (Multi, error) {
	n := r.Uvarint()
	if r.Err() != nil {
		return Multi{}, fmt.Errorf("%w: %w", ErrMalformed, r.Err())
	}
	// Every command takes at least one byte.
	if n > uint64(r.Remaining()) {
		return Multi{}, fmt.Errorf("%w: multi command declares %d commands, only %d bytes left",
			ErrMalformed, n, r.Remaining())
	}
	cmds := make([]Command, 0, n)
	for i := uint64(0); i < n; i++ {
		sub, err := decodeCommand(r, false)
		if err != nil {
			return Multi{}, err
		}
		cmds = append(cmds, sub)
	}
	return Multi{Commands: cmds}, nil
}

func (c TryConsume) appendFields(buf []byte) ([]byte, error) {
	return binary.AppendVarint(buf, c.Tokens), nil
}

func (c ConsumeAsMuchAsPossible) appendFields(buf []byte) ([]byte, error) {
	return binary.AppendVarint(buf, c.Limit), nil
}

func (c AddTokens) appendFields(buf []byte) ([]byte, error) {
	return binary.AppendVarint(buf, c.Tokens), nil
}

func (c GetAvailableTokens) appendFields(buf []byte) ([]byte, error) {
	return buf, nil
}

func (c EstimateTimeToRefill) appendFields(buf []byte) ([]byte, error) {
	buf = binary.AppendVarint(buf, int64(c.BandwidthIndex))
	return binary.AppendVarint(buf, c.Tokens), nil
}

func (c TryConsumeAndReturnRemaining) appendFields(buf []byte) ([]byte, error) {
	return binary.AppendVarint(buf, c.Tokens), nil
}

func (c Reset) appendFields(buf []byte) ([]byte, error) {
	return buf, nil
}

func (c Multi) appendFields(buf []byte) ([]byte, error) {
	buf = binary.AppendUvarint(buf, uint64(len(c.Commands)))
	for i, sub := range c.Commands {
		if sub == nil {
			return nil, fmt.Errorf("%w: command #%d is nil", ErrInvalidArgument, i)
		}
		if sub.TypeID() == TypeMulti {
			return nil, fmt.Errorf("%w: command #%d: %w", ErrInvalidArgument, i, ErrNestedMulti)
		}
		buf = append(buf, byte(sub.TypeID()))
		var err error
		if buf, err = sub.appendFields(buf); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

// EncodeResult serializes the command result.
func EncodeResult(res Result) ([]byte, error) {
	buf := make([]byte, 0, 16)
	buf = wire.AppendBool(buf, res.StateModified)
	return appendResultValue(buf, res.Value, true)
}

func appendResultValue(buf []byte, value interface{}, allowMulti bool) ([]byte, error) {
	switch v := value.(type) {
	case nil:
		return append(buf, valueKindNil), nil
	case bool:
		return wire.AppendBool(append(buf, valueKindBool), v), nil
	case int64:
		return binary.AppendVarint(append(buf, valueKindInt64), v), nil
	case ConsumptionProbe:
		buf = wire.AppendBool(append(buf, valueKindProbe), v.Consumed)
		buf = binary.AppendVarint(buf, v.RemainingTokens)
		return binary.AppendVarint(buf, v.NanosToWaitForRefill), nil
	case []Result:
		if !allowMulti {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, ErrNestedMulti)
		}
		buf = binary.AppendUvarint(append(buf, valueKindMulti), uint64(len(v)))
		for _, sub := range v {
			buf = wire.AppendBool(buf, sub.StateModified)
			var err error
			if buf, err = appendResultValue(buf, sub.Value, false); err != nil {
				return nil, err
			}
		}
		return buf, nil
	}
	return nil, fmt.Errorf("%w: unsupported result value type %T", ErrInvalidArgument, value)
}

// DecodeResult reconstructs the result encoded by EncodeResult.
func DecodeResult(data []byte) (Result, error) {
	r := wire.NewReader(data)
	res, err := decodeResult(r, true)
	if err != nil {
		return Result{}, err
	}
	if err = r.Finish(); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return res, nil
}

func decodeResult(r *wire.Reader, allowMulti bool) (Result, error) {
	res := Result{StateModified: r.Bool()}
	kind := r.Byte()
	if r.Err() != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformed, r.Err())
	}
	switch kind {
	case valueKindNil:
	case valueKindBool:
		res.Value = r.Bool()
	case valueKindInt64:
		res.Value = r.Varint()
	case valueKindProbe:
		res.Value = ConsumptionProbe{Consumed: r.Bool(), RemainingTokens: r.Varint(), NanosToWaitForRefill: r.Varint()}
	case valueKindMulti:
		if !allowMulti {
			return Result{}, fmt.Errorf("%w: %w", ErrMalformed, ErrNestedMulti)
		}
		n := r.Uvarint()
		if r.Err() == nil && n > uint64(r.Remaining()) {
			return Result{}, fmt.Errorf("%w: multi result declares %d results, only %d bytes left",
				ErrMalformed, n, r.Remaining())
		}
		subs := make([]Result, 0, n)
		for i := uint64(0); i < n && r.Err() == nil; i++ {
			sub, err := decodeResult(r, false)
			if err != nil {
				return Result{}, err
			}
			subs = append(subs, sub)
		}
		res.Value = subs
	default:
		return Result{}, fmt.Errorf("%w: unknown result value kind %d", ErrMalformed, kind)
	}
	if r.Err() != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrMalformed, r.Err())
	}
	return res, nil
}
