/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, name, data string) string {
	t.Helper()
	fname := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(fname, []byte(data), 0o600))
	return fname
}

func TestViperAdapter_Sources(t *testing.T) {
	requireBucket := func(t *testing.T, va *ViperAdapter) {
		name, err := va.GetString("bucket.name")
		require.NoError(t, err)
		require.Equal(t, "api-calls", name)
		tokens, err := va.GetInt("bucket.refill.tokens")
		require.NoError(t, err)
		require.Equal(t, 5, tokens)
		period, err := va.GetDuration("bucket.refill.period")
		require.NoError(t, err)
		require.Equal(t, time.Second, period)
	}

	t.Run("json reader", func(t *testing.T) {
		va := NewViperAdapter()
		require.NoError(t, va.SetFromReader(strings.NewReader(testBucketConfigJSON), DataTypeJSON))
		requireBucket(t, va)
	})

	t.Run("yaml file", func(t *testing.T) {
		va := NewViperAdapter()
		require.NoError(t, va.SetFromFile(writeTempConfig(t, "bucketgrid.yml", testBucketConfigYAML), DataTypeYAML))
		requireBucket(t, va)
	})

	t.Run("missing file", func(t *testing.T) {
		require.Error(t, NewViperAdapter().SetFromFile(filepath.Join(t.TempDir(), "missing.json"), DataTypeJSON))
	})

	t.Run("environment overrides data", func(t *testing.T) {
		t.Setenv("TEST_BUCKET_NAME", "uploads")
		t.Setenv("TEST_BUCKET_REFILL_PERIOD", "1m")

		va := NewViperAdapter()
		va.UseEnvVars("test")
		require.NoError(t, va.SetFromReader(strings.NewReader(testBucketConfigYAML), DataTypeYAML))

		name, err := va.GetString("bucket.name")
		require.NoError(t, err)
		require.Equal(t, "uploads", name)
		period, err := va.GetDuration("bucket.refill.period")
		require.NoError(t, err)
		require.Equal(t, time.Minute, period)
	})
}

func TestViperAdapter_Getters(t *testing.T) {
	getters := map[string]func(va *ViperAdapter, key string) (interface{}, error){
		"int":      func(va *ViperAdapter, key string) (interface{}, error) { return va.GetInt(key) },
		"bool":     func(va *ViperAdapter, key string) (interface{}, error) { return va.GetBool(key) },
		"duration": func(va *ViperAdapter, key string) (interface{}, error) { return va.GetDuration(key) },
		"bytes":    func(va *ViperAdapter, key string) (interface{}, error) { return va.GetBytesCount(key) },
		"slice":    func(va *ViperAdapter, key string) (interface{}, error) { return va.GetStringSlice(key) },
	}
	tests := []struct {
		getter string
		value  interface{}
		want   interface{}
	}{
		{getter: "int", value: "42", want: 42},
		{getter: "int", value: 7, want: 7},
		{getter: "bool", value: "true", want: true},
		{getter: "duration", value: "10ms", want: 10 * time.Millisecond},
		{getter: "duration", value: "1h2m3s", want: time.Hour + 2*time.Minute + 3*time.Second},
		{getter: "bytes", value: "1K", want: BytesCount(1024)},
		{getter: "bytes", value: "3G", want: BytesCount(3 << 30)},
		{getter: "bytes", value: "512B", want: BytesCount(512)},
		{getter: "bytes", value: 512, want: BytesCount(512)},
		{getter: "bytes", value: "256Mi", want: BytesCount(256 << 20)},
		{getter: "slice", value: []string{"127.0.0.1:6379", "127.0.0.1:6380"}, want: []string{"127.0.0.1:6379", "127.0.0.1:6380"}},

		{getter: "int", value: "many"},
		{getter: "int", value: []int{1, 2}},
		{getter: "bool", value: "maybe"},
		{getter: "duration", value: ""},
		{getter: "duration", value: "10foo"},
		{getter: "duration", value: []int{1, 2}},
		{getter: "bytes", value: -10},
		{getter: "bytes", value: true},
		{getter: "bytes", value: "1s"},
		{getter: "bytes", value: []string{"1K"}},
	}
	for _, tt := range tests {
		va := NewViperAdapter()
		va.Set("store.value", tt.value)
		got, err := getters[tt.getter](va, "store.value")
		if tt.want == nil {
			require.ErrorContains(t, err, "store.value: ", "%s getter must fail for %#v", tt.getter, tt.value)
			continue
		}
		require.NoError(t, err, "%s getter must not fail for %#v", tt.getter, tt.value)
		require.Equal(t, tt.want, got)
	}
}

func TestViperAdapter_MissingKeys(t *testing.T) {
	va := NewViperAdapter()

	i, err := va.GetInt("store.poolSize")
	require.NoError(t, err)
	require.Zero(t, i)

	d, err := va.GetDuration("store.cleanupInterval")
	require.NoError(t, err)
	require.Zero(t, d)

	b, err := va.GetBytesCount("store.maxCacheSize")
	require.NoError(t, err)
	require.Zero(t, b)

	s, err := va.GetStringSlice("store.addresses")
	require.NoError(t, err)
	require.Nil(t, s)
	require.False(t, va.IsSet("store.addresses"))
}

func TestViperAdapter_GetStringFromSet(t *testing.T) {
	const key = "bucketgrid.synchronization"
	set := []string{"direct", "none", "serialized"}
	va := NewViperAdapter()

	tests := []struct {
		value      interface{}
		ignoreCase bool
		want       string
		wantErr    string
	}{
		{value: "direct", want: "direct"},
		{value: "DIRECT", ignoreCase: true, want: "DIRECT"},
		{value: "DIRECT", wantErr: `bucketgrid.synchronization: unknown value "DIRECT", should be one of [direct none serialized]`},
		{value: "locked", ignoreCase: true, wantErr: `bucketgrid.synchronization: unknown value "locked", should be one of [direct none serialized]`},
		{value: true, wantErr: `bucketgrid.synchronization: unknown value "true", should be one of [direct none serialized]`},
	}
	for _, tt := range tests {
		va.Set(key, tt.value)
		got, err := va.GetStringFromSet(key, set, tt.ignoreCase)
		if tt.wantErr != "" {
			require.EqualError(t, err, tt.wantErr)
			continue
		}
		require.NoError(t, err)
		require.Equal(t, tt.want, got)
	}

	va.Set(key, []string{"direct", "none"})
	_, err := va.GetStringFromSet(key, set, false)
	require.ErrorContains(t, err, key+": ")
}
