/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"gopkg.in/yaml.v3"
)

// BytesCount is a size in bytes used in configuration structures (e.g. a cache size limit).
// It is decoded either from a non-negative integer or from a human-readable string
// like "64MB" or "512Mi", and encoded as a human-readable string.
type BytesCount uint64

// TimeDuration is a duration used in configuration structures (e.g. how long a bucket state is kept).
// It is decoded either from a non-negative integer of nanoseconds or from a string like "1h30m",
// and encoded as a string.
type TimeDuration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler interface.
// It is also used by mapstructure.TextUnmarshallerHookFunc.
func (b *BytesCount) UnmarshalText(text []byte) error {
	v, err := parseNonNegative(string(text), parseByteSize)
	if err != nil {
		return err
	}
	*b = BytesCount(v)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (b *BytesCount) UnmarshalJSON(data []byte) error {
	return b.UnmarshalText(jsonScalar(data))
}

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (b *BytesCount) UnmarshalYAML(value *yaml.Node) error {
	text, err := yamlScalar(value)
	if err != nil {
		return err
	}
	return b.UnmarshalText(text)
}

// String implements fmt.Stringer interface.
func (b BytesCount) String() string {
	return bytefmt.ByteSize(uint64(b))
}

// MarshalText implements encoding.TextMarshaler interface.
func (b BytesCount) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// MarshalJSON implements json.Marshaler interface.
func (b BytesCount) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.String())
}

// MarshalYAML implements yaml.Marshaler interface.
func (b BytesCount) MarshalYAML() (interface{}, error) {
	return b.String(), nil
}

// UnmarshalText implements encoding.TextUnmarshaler interface.
// It is also used by mapstructure.TextUnmarshallerHookFunc.
func (d *TimeDuration) UnmarshalText(text []byte) error {
	v, err := parseNonNegative(string(text), parseDuration)
	if err != nil {
		return err
	}
	*d = TimeDuration(v)
	return nil
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (d *TimeDuration) UnmarshalJSON(data []byte) error {
	return d.UnmarshalText(jsonScalar(data))
}

// UnmarshalYAML implements yaml.Unmarshaler interface.
func (d *TimeDuration) UnmarshalYAML(value *yaml.Node) error {
	text, err := yamlScalar(value)
	if err != nil {
		return err
	}
	return d.UnmarshalText(text)
}

// String implements fmt.Stringer interface.
func (d TimeDuration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler interface.
func (d TimeDuration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// MarshalJSON implements json.Marshaler interface.
func (d TimeDuration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// MarshalYAML implements yaml.Marshaler interface.
func (d TimeDuration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// parseNonNegative parses a plain integer or, if s is not an integer, a value with units.
func parseNonNegative[T ~int64 | ~uint64](s string, withUnits func(string) (T, error)) (T, error) {
	s = strings.TrimSpace(s)
	if num, err := strconv.ParseInt(s, 10, 64); err == nil {
		if num < 0 {
			return 0, fmt.Errorf("negative value is not allowed: %d", num)
		}
		return T(num), nil
	}
	return withUnits(s)
}

// k8sByteSuffixes are power-of-two suffixes used in Kubernetes resource quantities.
var k8sByteSuffixes = [...]string{"Ki", "Mi", "Gi", "Ti", "Pi", "Ei"}

func parseByteSize(s string) (uint64, error) {
	v := s
	for _, suffix := range k8sByteSuffixes {
		if strings.HasSuffix(v, suffix) {
			v = strings.TrimSuffix(v, "i")
			break
		}
	}
	num, err := bytefmt.ToBytes(v)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size format (%s): %w", s, err)
	}
	return num, nil
}

func parseDuration(s string) (int64, error) {
	dur, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid time duration format (%s): %w", s, err)
	}
	if dur < 0 {
		return 0, fmt.Errorf("negative value is not allowed: %s", s)
	}
	return int64(dur), nil
}

func jsonScalar(data []byte) []byte {
	if s, err := strconv.Unquote(string(data)); err == nil {
		return []byte(s)
	}
	return data
}

func yamlScalar(value *yaml.Node) ([]byte, error) {
	if value.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("scalar value expected at line %d", value.Line)
	}
	return []byte(value.Value), nil
}
