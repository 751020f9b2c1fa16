/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-bucketgrid/config"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/proxy"
)

const minimalConfigYAML = `
rules:
  - pattern: "*"
    bandwidths:
      - capacity: 10
        rate: 10/h
`

func loadTestAppConfig(t *testing.T, cfgData string) (*AppConfig, error) {
	t.Helper()
	cfg := NewAppConfig()
	err := config.NewDefaultLoader(envVarsPrefix).LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	return cfg, err
}

func TestAppConfig_Defaults(t *testing.T) {
	cfg, err := loadTestAppConfig(t, minimalConfigYAML)
	require.NoError(t, err)

	require.Equal(t, &ServerConfig{
		Address: DefaultServerAddress,
		Timeouts: TimeoutsConfig{
			Read:     DefaultServerTimeoutsRead,
			Write:    DefaultServerTimeoutsWrite,
			Idle:     DefaultServerTimeoutsIdle,
			Shutdown: DefaultServerTimeoutsShutdown,
		},
	}, cfg.Server)

	require.Equal(t, &StoreConfig{
		Kind:            StoreKindMemory,
		PoolSize:        DefaultStorePoolSize,
		Namespace:       DefaultStoreNamespace,
		CleanupInterval: DefaultStoreCleanupInterval,
		Badger:          BadgerStoreConfig{GCInterval: DefaultStoreBadgerGCInterval},
		Bigcache: BigcacheStoreConfig{
			LifeWindow: DefaultStoreBigcacheLifetime,
			Shards:     DefaultStoreBigcacheShards,
		},
	}, cfg.Store)

	require.Equal(t, log.LevelInfo, cfg.Log.Level)
	require.Equal(t, proxy.SynchronizationDirect, cfg.Bucketgrid.Synchronization)
	require.Len(t, cfg.Rules.Rules, 1)
}

func TestAppConfig_Full(t *testing.T) {
	cfgData := `
server:
  address: 127.0.0.1:9090
  timeouts:
    read: 2s
    write: 3s
    idle: 4s
    shutdown: 1s
store:
  kind: Redis
  addresses:
    - 127.0.0.1:6379
    - 127.0.0.1:6380
  poolSize: 20
  namespace: "rl:"
bucketgrid:
  synchronization: serialized
  batching:
    enabled: true
log:
  level: debug
rules:
  - pattern: "tenant:*"
    bandwidths:
      - capacity: 100
        rate: 10/s
      - capacity: 1000
        rate: 1000/h
        initialTokens: 0
  - pattern: "*"
    bandwidths:
      - capacity: 5
        rate: 5/250ms
`
	cfg, err := loadTestAppConfig(t, cfgData)
	require.NoError(t, err)

	require.Equal(t, "127.0.0.1:9090", cfg.Server.Address)
	require.Equal(t, TimeoutsConfig{Read: 2 * time.Second, Write: 3 * time.Second, Idle: 4 * time.Second, Shutdown: time.Second},
		cfg.Server.Timeouts)

	require.Equal(t, StoreKindRedis, cfg.Store.Kind)
	require.Equal(t, []string{"127.0.0.1:6379", "127.0.0.1:6380"}, cfg.Store.Addresses)
	require.Equal(t, 20, cfg.Store.PoolSize)
	require.Equal(t, "rl:", cfg.Store.Namespace)

	require.Equal(t, proxy.SynchronizationSerialized, cfg.Bucketgrid.Synchronization)
	require.True(t, cfg.Bucketgrid.Batching.Enabled)
	require.Equal(t, log.LevelDebug, cfg.Log.Level)

	require.Equal(t, []RuleConfig{
		{
			Pattern: "tenant:*",
			Bandwidths: []BandwidthConfig{
				{Capacity: 100, Rate: RateValue{Count: 10, Duration: time.Second}},
				{Capacity: 1000, Rate: RateValue{Count: 1000, Duration: time.Hour}, InitialTokens: int64Ptr(0)},
			},
		},
		{
			Pattern:    "*",
			Bandwidths: []BandwidthConfig{{Capacity: 5, Rate: RateValue{Count: 5, Duration: 250 * time.Millisecond}}},
		},
	}, cfg.Rules.Rules)
}

func TestAppConfig_Errors(t *testing.T) {
	tests := []struct {
		name       string
		cfgData    string
		wantErrMsg string
	}{
		{
			name:       "no rules",
			cfgData:    `store: {kind: memory}`,
			wantErrMsg: "rules: at least one rule should be specified",
		},
		{
			name:       "unknown store kind",
			cfgData:    "store: {kind: etcd}" + minimalConfigYAML,
			wantErrMsg: "store.kind: unknown value \"etcd\"",
		},
		{
			name:       "redis without addresses",
			cfgData:    "store: {kind: redis}" + minimalConfigYAML,
			wantErrMsg: "store.addresses: cannot be empty for \"redis\" store",
		},
		{
			name:       "non-positive pool size",
			cfgData:    "store: {poolSize: 0}" + minimalConfigYAML,
			wantErrMsg: "store.poolSize: must be positive",
		},
		{
			name:       "badger without dir",
			cfgData:    "store: {kind: badger}" + minimalConfigYAML,
			wantErrMsg: "store.badger.dir: cannot be empty when in-memory mode is disabled",
		},
		{
			name:       "shards is not power of two",
			cfgData:    "store: {bigcache: {shards: 100}}" + minimalConfigYAML,
			wantErrMsg: "store.bigcache.shards: must be a power of two",
		},
		{
			name:       "negative timeout",
			cfgData:    "server: {timeouts: {read: -1s}}" + minimalConfigYAML,
			wantErrMsg: "server.timeouts.read: cannot be negative",
		},
		{
			name: "invalid rate",
			cfgData: `
rules:
  - pattern: "*"
    bandwidths:
      - capacity: 10
        rate: 10 per second
`,
			wantErrMsg: "incorrect format for rate",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadTestAppConfig(t, tt.cfgData)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErrMsg)
		})
	}
}
