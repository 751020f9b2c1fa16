/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-bucketgrid/log/logtest"
	"github.com/acronis/go-bucketgrid/testutil"
)

func TestLoadAppConfig(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("server: {address: \":9999\"}"+minimalConfigYAML), 0o600))

	cfg, err := loadAppConfig(cfgPath)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.Server.Address)

	_, err = loadAppConfig(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)

	_, err = loadAppConfig(filepath.Join(t.TempDir(), "config.toml"))
	require.EqualError(t, err, `unsupported configuration file extension ".toml"`)
}

func TestLoadAppConfig_JSONWithEnvOverride(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.json")
	cfgData := `{"store": {"kind": "memory"}, "rules": [{"pattern": "*", "bandwidths": [{"capacity": 3, "rate": "3/m"}]}]}`
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfgData), 0o600))
	t.Setenv("BUCKETGRID_STORE_NAMESPACE", "env-ns:")

	cfg, err := loadAppConfig(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "env-ns:", cfg.Store.Namespace)
	require.Equal(t, []RuleConfig{{
		Pattern:    "*",
		Bandwidths: []BandwidthConfig{{Capacity: 3, Rate: RateValue{Count: 3, Duration: time.Minute}}},
	}}, cfg.Rules.Rules)
}

func TestApp(t *testing.T) {
	cfg, err := loadTestAppConfig(t, "server: {address: \"127.0.0.1:0\"}"+minimalConfigYAML)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logtest.NewLogger(t), nil, nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	resp := serve(a.handler, http.MethodPost, "/buckets/any/consume?tokens=3")
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotEmpty(t, resp.Header().Get(headerInstanceID))
	testutil.RequireJSONInRecorder(t, resp, &consumeResponse{Consumed: true, RemainingTokens: 7}, &consumeResponse{})

	serviceErr := make(chan error, 1)
	go func() { serviceErr <- runService(ctx, a.logger, a.unit(), make(chan os.Signal, 1)) }()

	require.Eventually(t, func() bool { return a.httpServer.Addr() != nil }, time.Second, time.Millisecond)
	httpResp, err := http.Get("http://" + a.httpServer.Addr().String() + "/buckets/any/available")
	require.NoError(t, err)
	testutil.RequireJSONInResponse(t, httpResp, &availableTokensResponse{AvailableTokens: 7}, &availableTokensResponse{})
	require.NoError(t, httpResp.Body.Close())

	cancel()
	select {
	case err = <-serviceErr:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("service is not stopped")
	}
}
