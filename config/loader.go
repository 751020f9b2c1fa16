/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Loader fills configuration sections from a DataProvider.
// Defaults of all sections are registered before any section is read.
type Loader struct {
	DataProvider DataProvider
}

// NewDefaultLoader creates a Loader backed by viper. Environment variables with envVarsPrefix override the data.
func NewDefaultLoader(envVarsPrefix string) *Loader {
	va := NewViperAdapter()
	va.UseEnvVars(envVarsPrefix)
	return NewLoader(va)
}

// NewLoader creates a Loader reading from dp.
func NewLoader(dp DataProvider) *Loader {
	return &Loader{dp}
}

// DataTypeFromPath returns the data type by the extension of the configuration file.
func DataTypeFromPath(path string) (DataType, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yml", ".yaml":
		return DataTypeYAML, nil
	case ".json":
		return DataTypeJSON, nil
	default:
		return "", fmt.Errorf("unsupported configuration file extension %q", ext)
	}
}

// LoadFromFile reads the file and fills the sections.
func (l *Loader) LoadFromFile(path string, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromFile(path, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

// LoadFromReader reads the data from reader and fills the sections.
func (l *Loader) LoadFromReader(reader io.Reader, dataType DataType, cfg Config, cfgs ...Config) error {
	if err := l.DataProvider.SetFromReader(reader, dataType); err != nil {
		return err
	}
	return l.load(append([]Config{cfg}, cfgs...))
}

func (l *Loader) load(cfgs []Config) error {
	for _, cfg := range cfgs {
		cfg.SetProviderDefaults(providerFor(cfg, l.DataProvider))
	}
	for _, cfg := range cfgs {
		if err := cfg.Set(providerFor(cfg, l.DataProvider)); err != nil {
			return err
		}
	}
	return nil
}

// providerFor returns dp wrapped with the key prefix of cfg if it has one.
func providerFor(cfg interface{}, dp DataProvider) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
