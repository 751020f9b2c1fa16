/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Command bucketgrid serves token buckets shared by many processes over HTTP.
// Bucket states are kept in the configured store, configurations are chosen by key patterns.
package main

import (
	"context"
	"flag"
	"fmt"
	golog "log"
	"net/http"
	"os"

	"github.com/rs/xid"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/config"
	"github.com/acronis/go-bucketgrid/internal/keytable"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/proxy"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to the configuration file (.yml, .yaml or .json)")
	flag.Parse()

	if err := runApp(*cfgPath); err != nil {
		golog.Fatal(err)
	}
}

func runApp(cfgPath string) error {
	cfg, err := loadAppConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, loggerClose := log.NewLogger(cfg.Log)
	defer loggerClose()

	backendMetrics := backend.NewPrometheusMetrics()
	backendMetrics.MustRegister()
	cacheMetrics := keytable.NewPrometheusMetrics()
	cacheMetrics.MustRegister()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger, backendMetrics, cacheMetrics)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Error("closing store error", log.Error(closeErr))
		}
	}()

	return runService(ctx, a.logger, a.unit(), make(chan os.Signal, 1))
}

// loadAppConfig loads configuration from the YAML or JSON file.
// Values may be overridden by environment variables (BUCKETGRID_STORE_KIND and so on).
func loadAppConfig(cfgPath string) (*AppConfig, error) {
	cfgLoader := config.NewDefaultLoader(envVarsPrefix)
	cfg := NewAppConfig()
	dataType, err := config.DataTypeFromPath(cfgPath)
	if err != nil {
		return nil, err
	}
	return cfg, cfgLoader.LoadFromFile(cfgPath, dataType, cfg)
}

// app holds all wired parts of the service.
type app struct {
	store      *openedStore
	manager    *proxy.Manager
	handler    http.Handler
	httpServer *httpServerUnit
	logger     log.FieldLogger
}

func newApp(
	ctx context.Context, cfg *AppConfig, logger log.FieldLogger,
	metrics backend.MetricsCollector, cacheMetrics keytable.MetricsCollector,
) (*app, error) {
	instanceID := xid.New().String()
	logger = logger.With(log.Instance(instanceID))

	rules, err := newRuleSet(cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	s, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Kind, err)
	}

	manager, err := proxy.NewManagerWithConfig(s.bucketStore, cfg.Bucketgrid, logger, metrics, cacheMetrics)
	if err != nil {
		_ = s.close()
		return nil, fmt.Errorf("create buckets manager: %w", err)
	}

	handler := newRouter(&managerResolver{manager: manager, rules: rules}, instanceID, logger)
	return &app{
		store:      s,
		manager:    manager,
		handler:    handler,
		httpServer: newHTTPServerUnit(cfg.Server, handler, logger),
		logger:     logger,
	}, nil
}

// unit returns the unit running the HTTP server and the store maintenance workers.
func (a *app) unit() unit {
	units := append([]unit{}, a.store.workers...)
	return newCompositeUnit(append(units, a.httpServer)...)
}

// Close releases the store.
func (a *app) Close() error {
	return a.store.close()
}
