/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package proxy

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/config"
	"github.com/acronis/go-bucketgrid/optimization"
	"github.com/acronis/go-bucketgrid/retry"
)

func TestConfig(t *testing.T) {
	tests := []struct {
		name        string
		cfgData     string
		expectedCfg func() *Config
	}{
		{
			name:        "empty config",
			cfgData:     ``,
			expectedCfg: func() *Config { return NewDefaultConfig() },
		},
		{
			name: "full config",
			cfgData: `
bucketgrid:
  synchronization: Serialized
  batching:
    enabled: true
  retry:
    policy: constant
    initialInterval: 10ms
    maxInterval: 1s
    maxAttempts: 7
    maxElapsedTime: 2s
  expiration:
    enabled: true
    keepAfterRefill: 5m
  clockRegression: fail
  configCache:
    maxKeys: 1000
`,
			expectedCfg: func() *Config {
				cfg := NewDefaultConfig()
				cfg.Synchronization = SynchronizationSerialized
				cfg.Batching.Enabled = true
				cfg.Retry = RetryConfig{
					Policy:          RetryPolicyConstant,
					InitialInterval: config.TimeDuration(10 * time.Millisecond),
					MaxInterval:     config.TimeDuration(time.Second),
					MaxAttempts:     7,
					MaxElapsedTime:  config.TimeDuration(2 * time.Second),
				}
				cfg.Expiration = ExpirationConfig{Enabled: true, KeepAfterRefill: config.TimeDuration(5 * time.Minute)}
				cfg.ClockRegression = "fail"
				cfg.ConfigCache.MaxKeys = 1000
				return cfg
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.NoError(t, err)
			require.Equal(t, tt.expectedCfg(), cfg)
		})
	}
}

func TestConfig_KeyPrefix(t *testing.T) {
	cfg := NewConfig(WithKeyPrefix("limits"))
	require.Equal(t, "limits", cfg.KeyPrefix())
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(`
limits:
  synchronization: none
`), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, SynchronizationNone, cfg.Synchronization)

	require.Equal(t, "bucketgrid", (&Config{}).KeyPrefix())
}

func TestConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfgData string
		errMsg  string
	}{
		{
			name: "unknown synchronization",
			cfgData: `
bucketgrid:
  synchronization: optimistic
`,
			errMsg: `bucketgrid.synchronization: unknown value "optimistic"`,
		},
		{
			name: "unknown retry policy",
			cfgData: `
bucketgrid:
  retry:
    policy: linear
`,
			errMsg: `bucketgrid.retry.policy: unknown value "linear"`,
		},
		{
			name: "zero initial interval",
			cfgData: `
bucketgrid:
  retry:
    initialInterval: 0s
`,
			errMsg: "bucketgrid.retry.initialInterval: must be positive",
		},
		{
			name: "negative max attempts",
			cfgData: `
bucketgrid:
  retry:
    maxAttempts: -1
`,
			errMsg: "bucketgrid.retry.maxAttempts: cannot be negative",
		},
		{
			name: "unknown clock regression policy",
			cfgData: `
bucketgrid:
  clockRegression: ignore
`,
			errMsg: `bucketgrid.clockRegression: unknown value "ignore"`,
		},
		{
			name: "negative config cache size",
			cfgData: `
bucketgrid:
  configCache:
    maxKeys: -5
`,
			errMsg: "bucketgrid.configCache.maxKeys: cannot be negative",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.cfgData), config.DataTypeYAML, cfg)
			require.ErrorContains(t, err, tt.errMsg)
		})
	}
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Synchronization = SynchronizationSerialized
	cfg.Retry.MaxElapsedTime = config.TimeDuration(3 * time.Second)

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)
	var decoded Config
	require.NoError(t, yaml.Unmarshal(data, &decoded))
	decoded.keyPrefix = cfg.keyPrefix
	require.Equal(t, cfg, &decoded)
}

func TestConfig_Builders(t *testing.T) {
	cfg := NewDefaultConfig()
	require.IsType(t, retry.ExponentialBackoffPolicy{}, cfg.RetryPolicy())
	require.Nil(t, cfg.ExpirationPolicy())
	require.Equal(t, backend.ClockRegressionSkip, cfg.ClockRegressionPolicy())
	require.Equal(t, optimization.Direct(), cfg.Optimization())

	cfg.Retry.Policy = RetryPolicyConstant
	cfg.Expiration.Enabled = true
	cfg.ClockRegression = "fail"
	cfg.Synchronization = SynchronizationSerialized
	cfg.Batching.Enabled = true
	require.IsType(t, retry.ConstantBackoffPolicy{}, cfg.RetryPolicy())
	require.NotNil(t, cfg.ExpirationPolicy())
	require.Equal(t, backend.ClockRegressionFail, cfg.ClockRegressionPolicy())
	require.NotEqual(t, optimization.Direct(), cfg.Optimization())
}
