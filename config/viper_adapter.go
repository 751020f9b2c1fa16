/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// ViperAdapter is a DataProvider backed by viper.
// Values are converted with spf13/cast, so "42" is a valid integer and "true" is a valid bool.
type ViperAdapter struct {
	viper *viper.Viper
}

var _ DataProvider = (*ViperAdapter)(nil)

// NewViperAdapter creates a new ViperAdapter with an empty viper instance.
func NewViperAdapter() *ViperAdapter {
	return &ViperAdapter{viper: viper.New()}
}

// UseEnvVars makes environment variables override the configuration data.
// The variable name is the upper-cased prefix and key joined by underscores,
// e.g. BUCKETGRID_STORE_KIND for the "bucketgrid" prefix and the "store.kind" key.
func (va *ViperAdapter) UseEnvVars(prefix string) {
	va.viper.SetEnvPrefix(prefix)
	va.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	va.viper.AutomaticEnv()
}

// SetFromFile reads the configuration data from the file.
func (va *ViperAdapter) SetFromFile(path string, dataType DataType) error {
	va.viper.SetConfigFile(path)
	va.viper.SetConfigType(string(dataType))
	return va.viper.ReadInConfig()
}

// SetFromReader reads the configuration data from the reader.
func (va *ViperAdapter) SetFromReader(reader io.Reader, dataType DataType) error {
	va.viper.SetConfigType(string(dataType))
	return va.viper.ReadConfig(reader)
}

// Set overrides the value of the key regardless of the data and the environment.
func (va *ViperAdapter) Set(key string, value interface{}) {
	va.viper.Set(key, value)
}

// SetDefault implements DataProvider interface.
func (va *ViperAdapter) SetDefault(key string, value interface{}) {
	va.viper.SetDefault(key, value)
}

// IsSet implements DataProvider interface. Keys are case-insensitive.
func (va *ViperAdapter) IsSet(key string) bool {
	return va.viper.IsSet(key)
}

// Get implements DataProvider interface.
func (va *ViperAdapter) Get(key string) interface{} {
	return va.viper.Get(key)
}

// GetBool implements DataProvider interface.
func (va *ViperAdapter) GetBool(key string) (bool, error) {
	return getCasted(va, key, cast.ToBoolE)
}

// GetInt implements DataProvider interface.
func (va *ViperAdapter) GetInt(key string) (int, error) {
	return getCasted(va, key, cast.ToIntE)
}

// GetString implements DataProvider interface.
func (va *ViperAdapter) GetString(key string) (string, error) {
	return getCasted(va, key, cast.ToStringE)
}

// GetStringSlice implements DataProvider interface. A missing key gives a nil slice.
func (va *ViperAdapter) GetStringSlice(key string) ([]string, error) {
	return getCasted(va, key, cast.ToStringSliceE)
}

// GetDuration implements DataProvider interface. A missing key gives zero duration.
func (va *ViperAdapter) GetDuration(key string) (time.Duration, error) {
	return getCasted(va, key, cast.ToDurationE)
}

// GetBytesCount implements DataProvider interface.
// The value may be a non-negative integer or a string like "100M".
func (va *ViperAdapter) GetBytesCount(key string) (BytesCount, error) {
	return getCasted(va, key, toBytesCountE)
}

// GetStringFromSet implements DataProvider interface.
// The returned string is not normalized, so with ignoreCase it may differ from the set element in case.
func (va *ViperAdapter) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	str, err := va.GetString(key)
	if err != nil {
		return "", err
	}
	for _, s := range set {
		if str == s || (ignoreCase && strings.EqualFold(str, s)) {
			return str, nil
		}
	}
	return "", WrapKeyErr(key, fmt.Errorf("unknown value %q, should be one of %v", str, set))
}

// UnmarshalKey implements DataProvider interface.
func (va *ViperAdapter) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	viperOpts := make([]viper.DecoderConfigOption, 0, len(opts))
	for _, opt := range opts {
		viperOpts = append(viperOpts, viper.DecoderConfigOption(opt))
	}
	return WrapKeyErrIfNeeded(key, va.viper.UnmarshalKey(key, rawVal, viperOpts...))
}

// WrapKeyErr implements DataProvider interface.
func (va *ViperAdapter) WrapKeyErr(key string, err error) error {
	return WrapKeyErr(key, err)
}

// getCasted converts the value of the key. Missing keys give the zero value without an error.
func getCasted[T any](va *ViperAdapter, key string, conv func(interface{}) (T, error)) (T, error) {
	var res T
	val := va.viper.Get(key)
	if val == nil {
		return res, nil
	}
	res, err := conv(val)
	return res, WrapKeyErrIfNeeded(key, err)
}

func toBytesCountE(val interface{}) (BytesCount, error) {
	var b BytesCount
	switch v := val.(type) {
	case BytesCount:
		return v, nil
	case string:
		err := b.UnmarshalText([]byte(v))
		return b, err
	case bool:
		return 0, fmt.Errorf("unable to cast %#v of type %T to BytesCount", val, val)
	}
	num, err := cast.ToInt64E(val)
	if err != nil {
		return 0, fmt.Errorf("unable to cast %#v of type %T to BytesCount", val, val)
	}
	if num < 0 {
		return 0, fmt.Errorf("negative value is not allowed: %d", num)
	}
	return BytesCount(num), nil
}
