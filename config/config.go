/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import "reflect"

// Config is a configuration section filled by Loader.
// SetProviderDefaults registers default values, Set reads and validates the values.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is implemented by sections whose keys live under a prefix (e.g. "log").
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// CallSetProviderDefaultsForFields calls SetProviderDefaults of every non-nil exported field of obj implementing Config.
func CallSetProviderDefaultsForFields(obj interface{}, dp DataProvider) {
	_ = forEachConfigField(obj, dp, func(c Config, cDp DataProvider) error {
		c.SetProviderDefaults(cDp)
		return nil
	})
}

// CallSetForFields calls Set of every non-nil exported field of obj implementing Config.
// Fields are processed in the declaration order, the first error stops the processing.
func CallSetForFields(obj interface{}, dp DataProvider) error {
	return forEachConfigField(obj, dp, func(c Config, cDp DataProvider) error {
		return c.Set(cDp)
	})
}

func forEachConfigField(obj interface{}, dp DataProvider, fn func(c Config, cDp DataProvider) error) error {
	el := reflect.ValueOf(obj).Elem()
	for i := 0; i < el.NumField(); i++ {
		if !el.Type().Field(i).IsExported() {
			continue
		}
		field := el.Field(i)
		if field.Kind() == reflect.Ptr && field.IsNil() {
			continue
		}
		c, ok := field.Interface().(Config)
		if !ok {
			continue
		}
		if err := fn(c, providerFor(c, dp)); err != nil {
			return err
		}
	}
	return nil
}
