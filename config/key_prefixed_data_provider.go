/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"time"
)

// KeyPrefixedDataProvider reads keys relative to a section of the configuration.
// For example, with the "store" prefix the "kind" key is read as "store.kind".
// Methods that do not take a key (e.g. SetFromReader) are passed to the wrapped provider as is.
type KeyPrefixedDataProvider struct {
	DataProvider
	keyPrefix string
}

var _ DataProvider = (*KeyPrefixedDataProvider)(nil)

// NewKeyPrefixedDataProvider creates a new KeyPrefixedDataProvider.
func NewKeyPrefixedDataProvider(delegate DataProvider, keyPrefix string) *KeyPrefixedDataProvider {
	return &KeyPrefixedDataProvider{DataProvider: delegate, keyPrefix: keyPrefix}
}

// Key returns the full key for the key relative to the section.
func (kp *KeyPrefixedDataProvider) Key(key string) string {
	switch {
	case kp.keyPrefix == "":
		return key
	case key == "":
		return kp.keyPrefix
	}
	return kp.keyPrefix + "." + key
}

// SetDefault implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) SetDefault(key string, value interface{}) {
	kp.DataProvider.SetDefault(kp.Key(key), value)
}

// IsSet implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) IsSet(key string) bool {
	return kp.DataProvider.IsSet(kp.Key(key))
}

// Get implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) Get(key string) interface{} {
	return kp.DataProvider.Get(kp.Key(key))
}

// GetBool implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetBool(key string) (bool, error) {
	return kp.DataProvider.GetBool(kp.Key(key))
}

// GetInt implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetInt(key string) (int, error) {
	return kp.DataProvider.GetInt(kp.Key(key))
}

// GetString implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetString(key string) (string, error) {
	return kp.DataProvider.GetString(kp.Key(key))
}

// GetStringFromSet implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetStringFromSet(key string, set []string, ignoreCase bool) (string, error) {
	return kp.DataProvider.GetStringFromSet(kp.Key(key), set, ignoreCase)
}

// GetStringSlice implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetStringSlice(key string) ([]string, error) {
	return kp.DataProvider.GetStringSlice(kp.Key(key))
}

// GetDuration implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetDuration(key string) (time.Duration, error) {
	return kp.DataProvider.GetDuration(kp.Key(key))
}

// GetBytesCount implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) GetBytesCount(key string) (BytesCount, error) {
	return kp.DataProvider.GetBytesCount(kp.Key(key))
}

// UnmarshalKey implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) UnmarshalKey(key string, rawVal interface{}, opts ...DecoderConfigOption) error {
	return kp.DataProvider.UnmarshalKey(kp.Key(key), rawVal, opts...)
}

// WrapKeyErr implements DataProvider interface.
func (kp *KeyPrefixedDataProvider) WrapKeyErr(key string, err error) error {
	return kp.DataProvider.WrapKeyErr(kp.Key(key), err)
}
