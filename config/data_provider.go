/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DataType is a format of configuration data.
type DataType string

// Supported data formats.
const (
	DataTypeYAML DataType = "yaml"
	DataTypeJSON DataType = "json"
)

// DataProvider is a source of configuration values.
// Values are read from a file or a reader and may be overridden by environment variables.
// Typed getters wrap conversion errors with the key where they occur.
type DataProvider interface {
	UseEnvVars(prefix string)
	SetFromFile(path string, dataType DataType) error
	SetFromReader(reader io.Reader, dataType DataType) error

	// SetDefault sets a value which is used when the key is set neither in the data nor in the environment.
	SetDefault(key string, value interface{})
	IsSet(key string) bool
	Get(key string) interface{}

	GetBool(key string) (bool, error)
	GetInt(key string) (int, error)
	GetString(key string) (string, error)
	GetStringFromSet(key string, set []string, ignoreCase bool) (string, error)
	GetStringSlice(key string) ([]string, error)
	GetDuration(key string) (time.Duration, error)
	GetBytesCount(key string) (BytesCount, error)
	UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error

	WrapKeyErr(key string, err error) error
}

// DecoderConfigOption tunes mapstructure decoding in UnmarshalKey.
type DecoderConfigOption func(*mapstructure.DecoderConfig)

// WithDecodeHook returns a DecoderConfigOption that replaces the default decode hooks.
// Durations, comma-separated string slices and types implementing encoding.TextUnmarshaler
// (TimeDuration, BytesCount) are decoded from strings.
func WithDecodeHook(hooks ...mapstructure.DecodeHookFunc) DecoderConfigOption {
	hooks = append([]mapstructure.DecodeHookFunc{
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	}, hooks...)
	return func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(hooks...)
	}
}

// WrapKeyErrIfNeeded is WrapKeyErr that keeps nil errors nil.
func WrapKeyErrIfNeeded(key string, err error) error {
	if err == nil {
		return nil
	}
	return WrapKeyErr(key, err)
}

// WrapKeyErr prefixes err with the key it relates to, e.g. "store.kind: unknown value".
func WrapKeyErr(key string, err error) error {
	return fmt.Errorf("%s: %w", key, err)
}
