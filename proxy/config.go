/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package proxy

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/config"
	"github.com/acronis/go-bucketgrid/optimization"
	"github.com/acronis/go-bucketgrid/retry"
)

const cfgDefaultKeyPrefix = "bucketgrid"

const (
	cfgKeySynchronization           = "synchronization"
	cfgKeyBatchingEnabled           = "batching.enabled"
	cfgKeyRetryPolicy               = "retry.policy"
	cfgKeyRetryInitialInterval      = "retry.initialInterval"
	cfgKeyRetryMaxInterval          = "retry.maxInterval"
	cfgKeyRetryMaxAttempts          = "retry.maxAttempts"
	cfgKeyRetryMaxElapsedTime       = "retry.maxElapsedTime"
	cfgKeyExpirationEnabled         = "expiration.enabled"
	cfgKeyExpirationKeepAfterRefill = "expiration.keepAfterRefill"
	cfgKeyClockRegression           = "clockRegression"
	cfgKeyConfigCacheMaxKeys        = "configCache.maxKeys"
)

// Synchronization is a strategy of in-process synchronization of requests for the same bucket.
type Synchronization string

// Synchronization strategies.
const (
	SynchronizationDirect     Synchronization = "direct"
	SynchronizationNone       Synchronization = "none"
	SynchronizationSerialized Synchronization = "serialized"
)

// RetryPolicy is a policy of delays between compare-and-swap attempts.
type RetryPolicy string

// Retry policies.
const (
	RetryPolicyExponential RetryPolicy = "exponential"
	RetryPolicyConstant    RetryPolicy = "constant"
)

// Default values.
const (
	DefaultExpirationKeepAfterRefill = time.Minute
	DefaultConfigCacheMaxKeys        = 100000
)

// Config represents a set of configuration parameters for Manager.
// Configuration can be loaded in different formats (YAML, JSON) using config.Loader, viper,
// or with json.Unmarshal/yaml.Unmarshal functions directly.
type Config struct {
	Synchronization Synchronization   `mapstructure:"synchronization" yaml:"synchronization" json:"synchronization"`
	Batching        BatchingConfig    `mapstructure:"batching" yaml:"batching" json:"batching"`
	Retry           RetryConfig       `mapstructure:"retry" yaml:"retry" json:"retry"`
	Expiration      ExpirationConfig  `mapstructure:"expiration" yaml:"expiration" json:"expiration"`
	ClockRegression string            `mapstructure:"clockRegression" yaml:"clockRegression" json:"clockRegression"`
	ConfigCache     ConfigCacheConfig `mapstructure:"configCache" yaml:"configCache" json:"configCache"`

	keyPrefix string
}

// BatchingConfig represents configuration of request batching.
type BatchingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
}

// RetryConfig represents configuration of retries after compare-and-swap conflicts.
// Zero MaxAttempts and zero MaxElapsedTime mean that retries last until the context is done.
type RetryConfig struct {
	Policy          RetryPolicy         `mapstructure:"policy" yaml:"policy" json:"policy"`
	InitialInterval config.TimeDuration `mapstructure:"initialInterval" yaml:"initialInterval" json:"initialInterval"`
	MaxInterval     config.TimeDuration `mapstructure:"maxInterval" yaml:"maxInterval" json:"maxInterval"`
	MaxAttempts     int                 `mapstructure:"maxAttempts" yaml:"maxAttempts" json:"maxAttempts"`
	MaxElapsedTime  config.TimeDuration `mapstructure:"maxElapsedTime" yaml:"maxElapsedTime" json:"maxElapsedTime"`
}

// ExpirationConfig represents configuration of bucket state expiration in stores that support TTL.
type ExpirationConfig struct {
	Enabled         bool                `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	KeepAfterRefill config.TimeDuration `mapstructure:"keepAfterRefill" yaml:"keepAfterRefill" json:"keepAfterRefill"`
}

// ConfigCacheConfig represents configuration of the in-process table of resolved bucket configurations.
// Zero MaxKeys means that the table is unbounded.
type ConfigCacheConfig struct {
	MaxKeys int `mapstructure:"maxKeys" yaml:"maxKeys" json:"maxKeys"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// ConfigOption is a type for functional options for the Config.
type ConfigOption func(*configOptions)

type configOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a ConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) ConfigOption {
	return func(o *configOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewConfig creates a new instance of the Config.
func NewConfig(options ...ConfigOption) *Config {
	opts := configOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &Config{keyPrefix: opts.keyPrefix}
}

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig(options ...ConfigOption) *Config {
	cfg := NewConfig(options...)
	cfg.Synchronization = SynchronizationDirect
	cfg.Retry = RetryConfig{
		Policy:          RetryPolicyExponential,
		InitialInterval: config.TimeDuration(retry.DefaultInitialInterval),
		MaxInterval:     config.TimeDuration(retry.DefaultMaxInterval),
	}
	cfg.Expiration.KeepAfterRefill = config.TimeDuration(DefaultExpirationKeepAfterRefill)
	cfg.ClockRegression = backend.ClockRegressionSkip.String()
	cfg.ConfigCache.MaxKeys = DefaultConfigCacheMaxKeys
	return cfg
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeySynchronization, string(SynchronizationDirect))
	dp.SetDefault(cfgKeyBatchingEnabled, false)
	dp.SetDefault(cfgKeyRetryPolicy, string(RetryPolicyExponential))
	dp.SetDefault(cfgKeyRetryInitialInterval, retry.DefaultInitialInterval.String())
	dp.SetDefault(cfgKeyRetryMaxInterval, retry.DefaultMaxInterval.String())
	dp.SetDefault(cfgKeyRetryMaxAttempts, 0)
	dp.SetDefault(cfgKeyRetryMaxElapsedTime, "0s")
	dp.SetDefault(cfgKeyExpirationEnabled, false)
	dp.SetDefault(cfgKeyExpirationKeepAfterRefill, DefaultExpirationKeepAfterRefill.String())
	dp.SetDefault(cfgKeyClockRegression, backend.ClockRegressionSkip.String())
	dp.SetDefault(cfgKeyConfigCacheMaxKeys, DefaultConfigCacheMaxKeys)
}

var availableSynchronizations = []string{
	string(SynchronizationDirect), string(SynchronizationNone), string(SynchronizationSerialized),
}

var availableRetryPolicies = []string{string(RetryPolicyExponential), string(RetryPolicyConstant)}

var availableClockRegressionPolicies = []string{
	backend.ClockRegressionSkip.String(), backend.ClockRegressionFail.String(),
}

// Set sets configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error

	var syncStr string
	if syncStr, err = dp.GetStringFromSet(cfgKeySynchronization, availableSynchronizations, true); err != nil {
		return err
	}
	c.Synchronization = Synchronization(strings.ToLower(syncStr))

	if c.Batching.Enabled, err = dp.GetBool(cfgKeyBatchingEnabled); err != nil {
		return err
	}

	if err = c.setRetryConfig(dp); err != nil {
		return err
	}

	if c.Expiration.Enabled, err = dp.GetBool(cfgKeyExpirationEnabled); err != nil {
		return err
	}
	var keepAfterRefill time.Duration
	if keepAfterRefill, err = dp.GetDuration(cfgKeyExpirationKeepAfterRefill); err != nil {
		return err
	}
	if keepAfterRefill < 0 {
		return dp.WrapKeyErr(cfgKeyExpirationKeepAfterRefill, fmt.Errorf("cannot be negative"))
	}
	c.Expiration.KeepAfterRefill = config.TimeDuration(keepAfterRefill)

	var clockStr string
	if clockStr, err = dp.GetStringFromSet(cfgKeyClockRegression, availableClockRegressionPolicies, true); err != nil {
		return err
	}
	c.ClockRegression = strings.ToLower(clockStr)

	if c.ConfigCache.MaxKeys, err = dp.GetInt(cfgKeyConfigCacheMaxKeys); err != nil {
		return err
	}
	if c.ConfigCache.MaxKeys < 0 {
		return dp.WrapKeyErr(cfgKeyConfigCacheMaxKeys, fmt.Errorf("cannot be negative"))
	}
	return nil
}

func (c *Config) setRetryConfig(dp config.DataProvider) error {
	var err error

	var policyStr string
	if policyStr, err = dp.GetStringFromSet(cfgKeyRetryPolicy, availableRetryPolicies, true); err != nil {
		return err
	}
	c.Retry.Policy = RetryPolicy(strings.ToLower(policyStr))

	durations := []struct {
		key string
		dst *config.TimeDuration
	}{
		{cfgKeyRetryInitialInterval, &c.Retry.InitialInterval},
		{cfgKeyRetryMaxInterval, &c.Retry.MaxInterval},
		{cfgKeyRetryMaxElapsedTime, &c.Retry.MaxElapsedTime},
	}
	for _, d := range durations {
		var val time.Duration
		if val, err = dp.GetDuration(d.key); err != nil {
			return err
		}
		if val < 0 {
			return dp.WrapKeyErr(d.key, fmt.Errorf("cannot be negative"))
		}
		*d.dst = config.TimeDuration(val)
	}
	if c.Retry.InitialInterval == 0 {
		return dp.WrapKeyErr(cfgKeyRetryInitialInterval, fmt.Errorf("must be positive"))
	}

	if c.Retry.MaxAttempts, err = dp.GetInt(cfgKeyRetryMaxAttempts); err != nil {
		return err
	}
	if c.Retry.MaxAttempts < 0 {
		return dp.WrapKeyErr(cfgKeyRetryMaxAttempts, fmt.Errorf("cannot be negative"))
	}
	return nil
}

// RetryPolicy builds the retry.Policy described by the configuration.
func (c *Config) RetryPolicy() retry.Policy {
	switch c.Retry.Policy {
	case RetryPolicyConstant:
		return retry.NewConstantBackoffPolicy(time.Duration(c.Retry.InitialInterval), c.Retry.MaxAttempts).
			WithMaxElapsedTime(time.Duration(c.Retry.MaxElapsedTime))
	default:
		initial := time.Duration(c.Retry.InitialInterval)
		if initial == 0 {
			initial = retry.DefaultInitialInterval
		}
		return retry.NewExponentialBackoffPolicy(initial, c.Retry.MaxAttempts).
			WithMaxInterval(time.Duration(c.Retry.MaxInterval)).
			WithMaxElapsedTime(time.Duration(c.Retry.MaxElapsedTime))
	}
}

// Optimization builds the optimization described by the configuration.
// Batching, if enabled, is applied on top of the synchronization strategy.
func (c *Config) Optimization(opts ...optimization.Option) optimization.Optimization {
	var sync optimization.Optimization
	switch c.Synchronization {
	case SynchronizationSerialized:
		sync = optimization.Serialized(opts...)
	case SynchronizationNone:
		sync = optimization.None()
	default:
		sync = optimization.Direct()
	}
	if !c.Batching.Enabled {
		return sync
	}
	return optimization.Chain(sync, optimization.Batching(opts...))
}

// ExpirationPolicy returns the expiration policy described by the configuration or nil if expiration is disabled.
func (c *Config) ExpirationPolicy() backend.ExpirationPolicy {
	if !c.Expiration.Enabled {
		return nil
	}
	return backend.ExpireAfterFullRefill(time.Duration(c.Expiration.KeepAfterRefill))
}

// ClockRegressionPolicy returns the configured clock regression policy.
func (c *Config) ClockRegressionPolicy() backend.ClockRegressionPolicy {
	p, err := backend.ParseClockRegressionPolicy(c.ClockRegression)
	if err != nil {
		return backend.ClockRegressionSkip
	}
	return p
}
