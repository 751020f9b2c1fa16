/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"fmt"
	"strings"

	"code.cloudfoundry.org/bytefmt"

	"github.com/acronis/go-bucketgrid/config"
)

const defaultKeyPrefix = "log"

const (
	cfgKeyLevel               = "level"
	cfgKeyFormat              = "format"
	cfgKeyOutput              = "output"
	cfgKeyNoColor             = "nocolor"
	cfgKeyAddCaller           = "addCaller"
	cfgKeyFilePath            = "file.path"
	cfgKeyRotationCompress    = "file.rotation.compress"
	cfgKeyRotationMaxSize     = "file.rotation.maxSize"
	cfgKeyRotationMaxBackups  = "file.rotation.maxBackups"
	cfgKeyRotationMaxAgeDays  = "file.rotation.maxAgeDays"
	cfgKeyRotationLocalTime   = "file.rotation.localTimeInNames"
	cfgKeyErrorNoVerbose      = "error.noVerbose"
	cfgKeyErrorVerboseSuffix  = "error.verboseSuffix"
	defaultErrorVerboseSuffix = "_verbose"
)

// Limits for the rotation of the log file.
const (
	DefaultRotationMaxSize    = 250 * bytefmt.MEGABYTE
	MinRotationMaxSize        = bytefmt.MEGABYTE
	DefaultRotationMaxBackups = 10
)

// Level is a minimal level of logged messages.
type Level string

// Logging levels.
const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Format is an encoding of logged messages.
type Format string

// Logging formats.
const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Output is a destination of logged messages.
type Output string

// Logging outputs.
const (
	OutputStdout Output = "stdout"
	OutputStderr Output = "stderr"
	OutputFile   Output = "file"
)

// Config is a logging section of the service configuration.
//
// Example (YAML):
//
//	log:
//	  level: info
//	  format: json
//	  output: file
//	  file:
//	    path: /var/log/bucketgrid-{{pid}}.log
//	    rotation:
//	      maxSize: 100M
//	      maxBackups: 5
type Config struct {
	Level     Level       `mapstructure:"level" yaml:"level" json:"level"`
	Format    Format      `mapstructure:"format" yaml:"format" json:"format"`
	Output    Output      `mapstructure:"output" yaml:"output" json:"output"`
	NoColor   bool        `mapstructure:"nocolor" yaml:"nocolor" json:"nocolor"`
	AddCaller bool        `mapstructure:"addCaller" yaml:"addCaller" json:"addCaller"`
	File      FileConfig  `mapstructure:"file" yaml:"file" json:"file"`
	Error     ErrorConfig `mapstructure:"error" yaml:"error" json:"error"`

	keyPrefix string
}

// FileConfig describes the log file used with the "file" output.
// Path may contain {{pid}} and {{starttime}} placeholders.
type FileConfig struct {
	Path     string         `mapstructure:"path" yaml:"path" json:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation" json:"rotation"`
}

// RotationConfig describes when the log file is rotated and how many old files are kept.
type RotationConfig struct {
	MaxSize          config.BytesCount `mapstructure:"maxSize" yaml:"maxSize" json:"maxSize"`
	MaxBackups       int               `mapstructure:"maxBackups" yaml:"maxBackups" json:"maxBackups"`
	MaxAgeDays       int               `mapstructure:"maxAgeDays" yaml:"maxAgeDays" json:"maxAgeDays"`
	Compress         bool              `mapstructure:"compress" yaml:"compress" json:"compress"`
	LocalTimeInNames bool              `mapstructure:"localTimeInNames" yaml:"localTimeInNames" json:"localTimeInNames"`
}

// ErrorConfig controls how errors passed with the Error field are encoded.
// Unless NoVerbose is set, an error implementing fmt.Formatter whose "%+v" output
// differs from Error() gets one more field named "error" + VerboseSuffix.
type ErrorConfig struct {
	NoVerbose     bool   `mapstructure:"noVerbose" yaml:"noVerbose" json:"noVerbose"`
	VerboseSuffix string `mapstructure:"verboseSuffix" yaml:"verboseSuffix" json:"verboseSuffix"`
}

var (
	_ config.Config            = (*Config)(nil)
	_ config.KeyPrefixProvider = (*Config)(nil)
)

// NewConfig creates an empty Config which is filled by config.Loader from the "log" section.
func NewConfig() *Config {
	return &Config{keyPrefix: defaultKeyPrefix}
}

// NewDefaultConfig creates a Config with default values: info messages in JSON to stdout.
func NewDefaultConfig() *Config {
	return &Config{
		keyPrefix: defaultKeyPrefix,
		Level:     LevelInfo,
		Format:    FormatJSON,
		Output:    OutputStdout,
		File: FileConfig{Rotation: RotationConfig{
			MaxSize:    DefaultRotationMaxSize,
			MaxBackups: DefaultRotationMaxBackups,
		}},
		Error: ErrorConfig{VerboseSuffix: defaultErrorVerboseSuffix},
	}
}

// WithKeyPrefix changes the section from which config.Loader reads the parameters.
func (c *Config) WithKeyPrefix(keyPrefix string) *Config {
	c.keyPrefix = keyPrefix
	return c
}

// KeyPrefix implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return defaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	def := NewDefaultConfig()
	dp.SetDefault(cfgKeyLevel, string(def.Level))
	dp.SetDefault(cfgKeyFormat, string(def.Format))
	dp.SetDefault(cfgKeyOutput, string(def.Output))
	dp.SetDefault(cfgKeyRotationMaxSize, def.File.Rotation.MaxSize.String())
	dp.SetDefault(cfgKeyRotationMaxBackups, def.File.Rotation.MaxBackups)
	dp.SetDefault(cfgKeyErrorVerboseSuffix, def.Error.VerboseSuffix)
}

// Set implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	level, err := getEnum(dp, cfgKeyLevel, LevelError, LevelWarn, LevelInfo, LevelDebug)
	if err != nil {
		return err
	}
	format, err := getEnum(dp, cfgKeyFormat, FormatJSON, FormatText)
	if err != nil {
		return err
	}
	output, err := getEnum(dp, cfgKeyOutput, OutputStdout, OutputStderr, OutputFile)
	if err != nil {
		return err
	}
	c.Level, c.Format, c.Output = level, format, output

	flags := []struct {
		key string
		dst *bool
	}{
		{cfgKeyNoColor, &c.NoColor},
		{cfgKeyAddCaller, &c.AddCaller},
		{cfgKeyErrorNoVerbose, &c.Error.NoVerbose},
	}
	for _, f := range flags {
		if *f.dst, err = dp.GetBool(f.key); err != nil {
			return err
		}
	}
	if c.Error.VerboseSuffix, err = dp.GetString(cfgKeyErrorVerboseSuffix); err != nil {
		return err
	}
	return c.setFile(dp)
}

func (c *Config) setFile(dp config.DataProvider) error {
	var err error
	if c.File.Path, err = dp.GetString(cfgKeyFilePath); err != nil {
		return err
	}
	if c.Output == OutputFile && c.File.Path == "" {
		return dp.WrapKeyErr(cfgKeyFilePath, fmt.Errorf("must be set for %q output", OutputFile))
	}

	rotation := &c.File.Rotation
	if rotation.MaxSize, err = dp.GetBytesCount(cfgKeyRotationMaxSize); err != nil {
		return err
	}
	if rotation.MaxSize < MinRotationMaxSize {
		return dp.WrapKeyErr(cfgKeyRotationMaxSize, fmt.Errorf("must be at least %s", bytefmt.ByteSize(MinRotationMaxSize)))
	}
	if rotation.MaxBackups, err = dp.GetInt(cfgKeyRotationMaxBackups); err != nil {
		return err
	}
	if rotation.MaxBackups < 1 {
		return dp.WrapKeyErr(cfgKeyRotationMaxBackups, fmt.Errorf("must be positive"))
	}
	if rotation.MaxAgeDays, err = dp.GetInt(cfgKeyRotationMaxAgeDays); err != nil {
		return err
	}
	if rotation.MaxAgeDays < 0 {
		return dp.WrapKeyErr(cfgKeyRotationMaxAgeDays, fmt.Errorf("must not be negative"))
	}
	if rotation.Compress, err = dp.GetBool(cfgKeyRotationCompress); err != nil {
		return err
	}
	rotation.LocalTimeInNames, err = dp.GetBool(cfgKeyRotationLocalTime)
	return err
}

func getEnum[T ~string](dp config.DataProvider, key string, values ...T) (T, error) {
	set := make([]string, len(values))
	for i := range values {
		set[i] = string(values[i])
	}
	s, err := dp.GetStringFromSet(key, set, true)
	if err != nil {
		return "", err
	}
	return T(strings.ToLower(s)), nil
}
