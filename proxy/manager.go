/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package proxy

import (
	"context"
	"fmt"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/bucket"
	"github.com/acronis/go-bucketgrid/internal/keytable"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/optimization"
	"github.com/acronis/go-bucketgrid/store"
)

// ManagerOptions represents options for Manager.
type ManagerOptions struct {
	// Backend contains options of the compare-and-swap backends.
	Backend backend.Options

	// Optimization is applied to both blocking and non-blocking backends. Direct if nil.
	Optimization optimization.Optimization

	// ConfigCacheMaxKeys limits the number of resolved configurations kept in memory.
	// Zero means no limit.
	ConfigCacheMaxKeys int

	// ConfigCacheMetrics collects statistics of the configurations table. Disabled if nil.
	ConfigCacheMetrics keytable.MetricsCollector
}

// Manager creates proxies of buckets stored in one store.
// It is safe for concurrent use and is supposed to be shared by the whole process.
type Manager struct {
	backend      backend.Backend
	asyncBackend backend.AsyncBackend
	configs      *keytable.Table[string, bucket.Configuration]
	logger       log.FieldLogger
}

// NewManager creates a new Manager.
func NewManager(s store.Store, opts ManagerOptions) (*Manager, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	configs, err := keytable.New[string, bucket.Configuration](opts.ConfigCacheMaxKeys, opts.ConfigCacheMetrics)
	if err != nil {
		return nil, fmt.Errorf("create configurations table: %w", err)
	}
	opt := opts.Optimization
	if opt == nil {
		opt = optimization.Direct()
	}
	logger := opts.Backend.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	return &Manager{
		backend:      opt.Apply(backend.NewCASBackend(s, opts.Backend)),
		asyncBackend: opt.ApplyAsync(backend.NewAsyncCASBackend(s, opts.Backend)),
		configs:      configs,
		logger:       logger,
	}, nil
}

// NewManagerWithConfig creates a new Manager with parameters taken from cfg.
// Logger and metrics collectors are shared by all layers.
func NewManagerWithConfig(
	s store.Store, cfg *Config, logger log.FieldLogger, metrics backend.MetricsCollector, cacheMetrics keytable.MetricsCollector,
) (*Manager, error) {
	var optOpts []optimization.Option
	if logger != nil {
		optOpts = append(optOpts, optimization.WithLogger(logger))
	}
	if metrics != nil {
		optOpts = append(optOpts, optimization.WithMetrics(metrics))
	}
	return NewManager(s, ManagerOptions{
		Backend: backend.Options{
			Logger:                logger,
			Metrics:               metrics,
			RetryPolicy:           cfg.RetryPolicy(),
			ClockRegressionPolicy: cfg.ClockRegressionPolicy(),
			Expiration:            cfg.ExpirationPolicy(),
		},
		Optimization:       cfg.Optimization(optOpts...),
		ConfigCacheMaxKeys: cfg.ConfigCache.MaxKeys,
		ConfigCacheMetrics: cacheMetrics,
	})
}

// GetProxy returns a blocking proxy of the bucket stored under key.
// The supplier is called only when the bucket does not exist in the store yet,
// and its successful result is remembered for the key, so concurrent first accesses call it once.
// Creating a proxy does not access the store.
func (m *Manager) GetProxy(key string, supplier backend.ConfigurationSupplier) *Bucket {
	return &Bucket{key: key, backend: m.backend, supplier: m.memoize(key, supplier)}
}

// GetAsyncProxy returns a non-blocking proxy of the bucket stored under key.
// See GetProxy for details about the supplier.
func (m *Manager) GetAsyncProxy(key string, supplier backend.ConfigurationSupplier) *AsyncBucket {
	return &AsyncBucket{key: key, backend: m.asyncBackend, supplier: m.memoize(key, supplier)}
}

// ForgetConfiguration removes the remembered configuration of the bucket,
// so the supplier will be called again if the bucket has to be created.
func (m *Manager) ForgetConfiguration(key string) bool {
	return m.configs.Remove(key)
}

func (m *Manager) memoize(key string, supplier backend.ConfigurationSupplier) backend.ConfigurationSupplier {
	if supplier == nil {
		return nil
	}
	return func(ctx context.Context) (bucket.Configuration, error) {
		return m.configs.Resolve(ctx, key, func(ctx context.Context) (bucket.Configuration, error) {
			cfg, err := supplier(ctx)
			if err != nil {
				return cfg, err
			}
			m.logger.Debug("bucket configuration is resolved", log.BucketKey(key), log.String("configuration", cfg.String()))
			return cfg, nil
		})
	}
}
