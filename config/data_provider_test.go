/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package config

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errTest = errors.New("test error")

func TestWrapKeyErrIfNeeded(t *testing.T) {
	t.Run("wrap nil", func(t *testing.T) {
		assert.Nil(t, WrapKeyErrIfNeeded("store.kind", nil), "nil should not be wrapped")
	})

	t.Run("wrap error", func(t *testing.T) {
		const key = "store.kind"
		errInvalidKind := errors.New("invalid kind")
		gotErr := WrapKeyErrIfNeeded(key, errInvalidKind)
		wantErrMsg := fmt.Sprintf("%s: %v", key, errInvalidKind)
		assert.EqualError(t, gotErr, wantErrMsg, "texts of errors should be equal")
		assert.Equal(t, errInvalidKind, errors.Unwrap(gotErr), "original error should be wrapped")
	})
}

func TestWithDecodeHook(t *testing.T) {
	type rule struct {
		Pattern     string        `mapstructure:"pattern"`
		Period      time.Duration `mapstructure:"period"`
		KeepFor     TimeDuration  `mapstructure:"keepFor"`
		StateSize   BytesCount    `mapstructure:"stateSize"`
		Tags        []string      `mapstructure:"tags"`
		MaxInFlight int           `mapstructure:"maxInFlight"`
	}
	input := map[string]interface{}{
		"pattern":     "tenant:*",
		"period":      "1m",
		"keepFor":     "30s",
		"stateSize":   "1K",
		"tags":        "api,internal",
		"maxInFlight": 5,
	}

	var got rule
	dc := &mapstructure.DecoderConfig{Result: &got}
	WithDecodeHook()(dc)
	dec, err := mapstructure.NewDecoder(dc)
	require.NoError(t, err)
	require.NoError(t, dec.Decode(input))
	require.Equal(t, rule{
		Pattern:     "tenant:*",
		Period:      time.Minute,
		KeepFor:     TimeDuration(30 * time.Second),
		StateSize:   BytesCount(1024),
		Tags:        []string{"api", "internal"},
		MaxInFlight: 5,
	}, got)
}
