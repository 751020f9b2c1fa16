/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-bucketgrid/bucket"
)

func TestRateValue_Unmarshal(t *testing.T) {
	tests := []struct {
		rate    string
		want    RateValue
		wantErr bool
	}{
		{rate: "10/s", want: RateValue{Count: 10, Duration: time.Second}},
		{rate: "100/m", want: RateValue{Count: 100, Duration: time.Minute}},
		{rate: "1000/H", want: RateValue{Count: 1000, Duration: time.Hour}},
		{rate: " 5/250ms ", want: RateValue{Count: 5, Duration: 250 * time.Millisecond}},
		{rate: "10", wantErr: true},
		{rate: "0/s", wantErr: true},
		{rate: "-1/s", wantErr: true},
		{rate: "x/s", wantErr: true},
		{rate: "10/d", wantErr: true},
		{rate: "10/-1s", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.rate, func(t *testing.T) {
			var got RateValue
			err := got.UnmarshalText([]byte(tt.rate))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRateValue_RoundTripFormats(t *testing.T) {
	rv := RateValue{Count: 5, Duration: 250 * time.Millisecond}
	require.Equal(t, "5/250ms", rv.String())
	require.Equal(t, "10/m", RateValue{Count: 10, Duration: time.Minute}.String())
	require.Equal(t, "", RateValue{}.String())

	jsonData, err := json.Marshal(rv)
	require.NoError(t, err)
	require.Equal(t, `"5/250ms"`, string(jsonData))
	var fromJSON RateValue
	require.NoError(t, json.Unmarshal(jsonData, &fromJSON))
	require.Equal(t, rv, fromJSON)

	yamlData, err := yaml.Marshal(BandwidthConfig{Capacity: 5, Rate: rv})
	require.NoError(t, err)
	var fromYAML BandwidthConfig
	require.NoError(t, yaml.Unmarshal(yamlData, &fromYAML))
	require.Equal(t, BandwidthConfig{Capacity: 5, Rate: rv}, fromYAML)

	require.Error(t, json.Unmarshal([]byte(`"5 per second"`), &fromJSON))
}

func TestBandwidthConfig_Bandwidth(t *testing.T) {
	bw := BandwidthConfig{Capacity: 100, Rate: RateValue{Count: 10, Duration: time.Second}}.Bandwidth()
	require.Equal(t, bucket.Classic(100, 10, time.Second), bw)

	bw = BandwidthConfig{Capacity: 100, Rate: RateValue{Count: 10, Duration: time.Second}, InitialTokens: int64Ptr(7)}.Bandwidth()
	require.Equal(t, int64(7), bw.InitialTokens)
}

func TestRulesConfig_Validate(t *testing.T) {
	validBandwidths := []BandwidthConfig{{Capacity: 10, Rate: RateValue{Count: 1, Duration: time.Second}}}
	tests := []struct {
		name       string
		cfg        RulesConfig
		wantErrMsg string
	}{
		{
			name:       "no rules",
			cfg:        RulesConfig{},
			wantErrMsg: "at least one rule should be specified",
		},
		{
			name:       "empty pattern",
			cfg:        RulesConfig{Rules: []RuleConfig{{Bandwidths: validBandwidths}}},
			wantErrMsg: "rule #0: pattern is missing",
		},
		{
			name:       "no bandwidths",
			cfg:        RulesConfig{Rules: []RuleConfig{{Pattern: "*"}}},
			wantErrMsg: "at least one bandwidth should be specified",
		},
		{
			name: "initial tokens exceed capacity",
			cfg: RulesConfig{Rules: []RuleConfig{{Pattern: "*", Bandwidths: []BandwidthConfig{
				{Capacity: 10, Rate: RateValue{Count: 1, Duration: time.Second}, InitialTokens: int64Ptr(11)},
			}}}},
			wantErrMsg: "initial tokens must be in range [0, 10], got 11",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErrMsg)
		})
	}

	require.NoError(t, (&RulesConfig{Rules: []RuleConfig{{Pattern: "*", Bandwidths: validBandwidths}}}).Validate())
}

func TestRuleSet_Match(t *testing.T) {
	rs, err := newRuleSet(&RulesConfig{Rules: []RuleConfig{
		{Pattern: "tenant:vip-*", Bandwidths: []BandwidthConfig{{Capacity: 1000, Rate: RateValue{Count: 100, Duration: time.Second}}}},
		{Pattern: "tenant:*", Bandwidths: []BandwidthConfig{{Capacity: 10, Rate: RateValue{Count: 1, Duration: time.Second}}}},
		{Pattern: "*:login", Bandwidths: []BandwidthConfig{{Capacity: 5, Rate: RateValue{Count: 5, Duration: time.Minute}}}},
	}})
	require.NoError(t, err)

	tests := []struct {
		key         string
		wantPattern string
		wantFound   bool
	}{
		{key: "tenant:vip-1", wantPattern: "tenant:vip-*", wantFound: true},
		{key: "tenant:42", wantPattern: "tenant:*", wantFound: true},
		{key: "tenant:login", wantPattern: "tenant:*", wantFound: true},
		{key: "user:login", wantPattern: "*:login", wantFound: true},
		{key: "user:logout", wantFound: false},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			_, pattern, found := rs.Match(tt.key)
			require.Equal(t, tt.wantFound, found)
			require.Equal(t, tt.wantPattern, pattern)
		})
	}

	cfg, _, _ := rs.Match("tenant:vip-1")
	require.Equal(t, bucket.MustConfiguration(bucket.Classic(1000, 100, time.Second)), cfg)
}

func TestRuleSet_Supplier(t *testing.T) {
	rs, err := newRuleSet(&RulesConfig{Rules: []RuleConfig{
		{Pattern: "tenant:*", Bandwidths: []BandwidthConfig{{Capacity: 10, Rate: RateValue{Count: 1, Duration: time.Second}}}},
	}})
	require.NoError(t, err)

	cfg, err := rs.Supplier("tenant:1")(context.Background())
	require.NoError(t, err)
	require.Equal(t, bucket.MustConfiguration(bucket.Classic(10, 1, time.Second)), cfg)

	_, err = rs.Supplier("user:1")(context.Background())
	require.ErrorIs(t, err, ErrNoMatchingRule)
	require.Contains(t, err.Error(), `"user:1"`)
}
