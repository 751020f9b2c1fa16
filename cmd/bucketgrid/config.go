/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/acronis/go-bucketgrid/config"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/proxy"
)

const envVarsPrefix = "bucketgrid"

const (
	cfgKeyServerAddress          = "address"
	cfgKeyServerTimeoutsRead     = "timeouts.read"
	cfgKeyServerTimeoutsWrite    = "timeouts.write"
	cfgKeyServerTimeoutsIdle     = "timeouts.idle"
	cfgKeyServerTimeoutsShutdown = "timeouts.shutdown"

	cfgKeyStoreKind                 = "kind"
	cfgKeyStoreAddresses            = "addresses"
	cfgKeyStorePoolSize             = "poolSize"
	cfgKeyStoreNamespace            = "namespace"
	cfgKeyStoreCleanupInterval      = "cleanupInterval"
	cfgKeyStoreBadgerDir            = "badger.dir"
	cfgKeyStoreBadgerInMemory       = "badger.inMemory"
	cfgKeyStoreBadgerGCInterval     = "badger.gcInterval"
	cfgKeyStoreBigcacheLifeWindow   = "bigcache.lifeWindow"
	cfgKeyStoreBigcacheShards       = "bigcache.shards"
	cfgKeyStoreBigcacheHardMaxCache = "bigcache.hardMaxCacheSize"
)

// Default values.
const (
	DefaultServerAddress          = ":8080"
	DefaultServerTimeoutsRead     = 15 * time.Second
	DefaultServerTimeoutsWrite    = 15 * time.Second
	DefaultServerTimeoutsIdle     = time.Minute
	DefaultServerTimeoutsShutdown = 5 * time.Second

	DefaultStoreKind             = StoreKindMemory
	DefaultStorePoolSize         = 10
	DefaultStoreNamespace        = "bucketgrid:"
	DefaultStoreCleanupInterval  = time.Minute
	DefaultStoreBadgerGCInterval = 5 * time.Minute
	DefaultStoreBigcacheShards   = 1024
	DefaultStoreBigcacheLifetime = 24 * time.Hour
)

// StoreKind is a kind of the external store where buckets are kept.
type StoreKind string

// Store kinds.
const (
	StoreKindMemory   StoreKind = "memory"
	StoreKindBigcache StoreKind = "bigcache"
	StoreKindRedis    StoreKind = "redis"
	StoreKindRadix    StoreKind = "radix"
	StoreKindBadger   StoreKind = "badger"
)

var availableStoreKinds = []string{
	string(StoreKindMemory), string(StoreKindBigcache), string(StoreKindRedis), string(StoreKindRadix), string(StoreKindBadger),
}

// AppConfig is the whole configuration of the service.
type AppConfig struct {
	Server     *ServerConfig
	Store      *StoreConfig
	Rules      *RulesConfig
	Log        *log.Config
	Bucketgrid *proxy.Config
}

var _ config.Config = (*AppConfig)(nil)

// NewAppConfig creates a new instance of the AppConfig.
func NewAppConfig() *AppConfig {
	return &AppConfig{
		Server:     &ServerConfig{},
		Store:      &StoreConfig{},
		Rules:      &RulesConfig{},
		Log:        log.NewConfig(),
		Bucketgrid: proxy.NewConfig(),
	}
}

// SetProviderDefaults implements config.Config interface.
func (c *AppConfig) SetProviderDefaults(dp config.DataProvider) {
	config.CallSetProviderDefaultsForFields(c, dp)
}

// Set implements config.Config interface.
func (c *AppConfig) Set(dp config.DataProvider) error {
	return config.CallSetForFields(c, dp)
}

// ServerConfig represents configuration of the HTTP server.
type ServerConfig struct {
	Address  string
	Timeouts TimeoutsConfig
}

// TimeoutsConfig represents timeouts of the HTTP server.
type TimeoutsConfig struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

var _ config.KeyPrefixProvider = (*ServerConfig)(nil)

// KeyPrefix implements config.KeyPrefixProvider interface.
func (c *ServerConfig) KeyPrefix() string {
	return "server"
}

// SetProviderDefaults implements config.Config interface.
func (c *ServerConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyServerAddress, DefaultServerAddress)
	dp.SetDefault(cfgKeyServerTimeoutsRead, DefaultServerTimeoutsRead.String())
	dp.SetDefault(cfgKeyServerTimeoutsWrite, DefaultServerTimeoutsWrite.String())
	dp.SetDefault(cfgKeyServerTimeoutsIdle, DefaultServerTimeoutsIdle.String())
	dp.SetDefault(cfgKeyServerTimeoutsShutdown, DefaultServerTimeoutsShutdown.String())
}

// Set implements config.Config interface.
func (c *ServerConfig) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyServerAddress); err != nil {
		return err
	}
	for _, t := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyServerTimeoutsRead, &c.Timeouts.Read},
		{cfgKeyServerTimeoutsWrite, &c.Timeouts.Write},
		{cfgKeyServerTimeoutsIdle, &c.Timeouts.Idle},
		{cfgKeyServerTimeoutsShutdown, &c.Timeouts.Shutdown},
	} {
		if *t.dst, err = dp.GetDuration(t.key); err != nil {
			return err
		}
		if *t.dst < 0 {
			return dp.WrapKeyErr(t.key, fmt.Errorf("cannot be negative"))
		}
	}
	return nil
}

// StoreConfig represents configuration of the store where buckets are kept.
type StoreConfig struct {
	Kind            StoreKind
	Addresses       []string
	PoolSize        int
	Namespace       string
	CleanupInterval time.Duration
	Badger          BadgerStoreConfig
	Bigcache        BigcacheStoreConfig
}

// BadgerStoreConfig represents configuration of the Badger store.
type BadgerStoreConfig struct {
	Dir        string
	InMemory   bool
	GCInterval time.Duration
}

// BigcacheStoreConfig represents configuration of the BigCache store.
type BigcacheStoreConfig struct {
	LifeWindow       time.Duration
	Shards           int
	HardMaxCacheSize config.BytesCount
}

var _ config.KeyPrefixProvider = (*StoreConfig)(nil)

// KeyPrefix implements config.KeyPrefixProvider interface.
func (c *StoreConfig) KeyPrefix() string {
	return "store"
}

// SetProviderDefaults implements config.Config interface.
func (c *StoreConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyStoreKind, string(DefaultStoreKind))
	dp.SetDefault(cfgKeyStorePoolSize, DefaultStorePoolSize)
	dp.SetDefault(cfgKeyStoreNamespace, DefaultStoreNamespace)
	dp.SetDefault(cfgKeyStoreCleanupInterval, DefaultStoreCleanupInterval.String())
	dp.SetDefault(cfgKeyStoreBadgerGCInterval, DefaultStoreBadgerGCInterval.String())
	dp.SetDefault(cfgKeyStoreBigcacheLifeWindow, DefaultStoreBigcacheLifetime.String())
	dp.SetDefault(cfgKeyStoreBigcacheShards, DefaultStoreBigcacheShards)
}

// Set implements config.Config interface.
func (c *StoreConfig) Set(dp config.DataProvider) error {
	kind, err := dp.GetStringFromSet(cfgKeyStoreKind, availableStoreKinds, true)
	if err != nil {
		return err
	}
	c.Kind = StoreKind(strings.ToLower(kind))

	if c.Addresses, err = dp.GetStringSlice(cfgKeyStoreAddresses); err != nil {
		return err
	}
	if (c.Kind == StoreKindRedis || c.Kind == StoreKindRadix) && len(c.Addresses) == 0 {
		return dp.WrapKeyErr(cfgKeyStoreAddresses, fmt.Errorf("cannot be empty for %q store", c.Kind))
	}
	if c.PoolSize, err = dp.GetInt(cfgKeyStorePoolSize); err != nil {
		return err
	}
	if c.PoolSize <= 0 {
		return dp.WrapKeyErr(cfgKeyStorePoolSize, fmt.Errorf("must be positive"))
	}
	if c.Namespace, err = dp.GetString(cfgKeyStoreNamespace); err != nil {
		return err
	}
	if c.CleanupInterval, err = dp.GetDuration(cfgKeyStoreCleanupInterval); err != nil {
		return err
	}

	if c.Badger.Dir, err = dp.GetString(cfgKeyStoreBadgerDir); err != nil {
		return err
	}
	if c.Badger.InMemory, err = dp.GetBool(cfgKeyStoreBadgerInMemory); err != nil {
		return err
	}
	if c.Kind == StoreKindBadger && c.Badger.Dir == "" && !c.Badger.InMemory {
		return dp.WrapKeyErr(cfgKeyStoreBadgerDir, fmt.Errorf("cannot be empty when in-memory mode is disabled"))
	}
	if c.Badger.GCInterval, err = dp.GetDuration(cfgKeyStoreBadgerGCInterval); err != nil {
		return err
	}

	if c.Bigcache.LifeWindow, err = dp.GetDuration(cfgKeyStoreBigcacheLifeWindow); err != nil {
		return err
	}
	if c.Bigcache.Shards, err = dp.GetInt(cfgKeyStoreBigcacheShards); err != nil {
		return err
	}
	if c.Bigcache.Shards <= 0 || c.Bigcache.Shards&(c.Bigcache.Shards-1) != 0 {
		return dp.WrapKeyErr(cfgKeyStoreBigcacheShards, fmt.Errorf("must be a power of two"))
	}
	if c.Bigcache.HardMaxCacheSize, err = dp.GetBytesCount(cfgKeyStoreBigcacheHardMaxCache); err != nil {
		return err
	}
	return nil
}
