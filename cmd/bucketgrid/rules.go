/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vasayxtx/go-glob"
	"gopkg.in/yaml.v3"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/bucket"
	"github.com/acronis/go-bucketgrid/config"
)

const cfgKeyRules = "rules"

// ErrNoMatchingRule is returned by the configuration supplier when no rule matches the bucket key.
var ErrNoMatchingRule = errors.New("no rule matches the bucket key")

// RulesConfig maps bucket keys to bucket configurations.
// Rules are checked in order, the first rule whose pattern matches the key wins.
//
//	rules:
//	  - pattern: "tenant:*"
//	    bandwidths:
//	      - capacity: 100
//	        rate: 10/s
//	      - capacity: 1000
//	        rate: 1000/h
//	        initialTokens: 0
type RulesConfig struct {
	Rules []RuleConfig `mapstructure:"rules" yaml:"rules" json:"rules"`
}

var _ config.Config = (*RulesConfig)(nil)

// RuleConfig represents a single rule.
type RuleConfig struct {
	Pattern    string            `mapstructure:"pattern" yaml:"pattern" json:"pattern"`
	Bandwidths []BandwidthConfig `mapstructure:"bandwidths" yaml:"bandwidths" json:"bandwidths"`
}

// BandwidthConfig represents a single bandwidth of the rule.
// InitialTokens is equal to Capacity if it is not specified.
type BandwidthConfig struct {
	Capacity      int64     `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	Rate          RateValue `mapstructure:"rate" yaml:"rate" json:"rate"`
	InitialTokens *int64    `mapstructure:"initialTokens" yaml:"initialTokens,omitempty" json:"initialTokens,omitempty"`
}

// Bandwidth converts the configuration into bucket.Bandwidth.
func (c BandwidthConfig) Bandwidth() bucket.Bandwidth {
	bw := bucket.Classic(c.Capacity, int64(c.Rate.Count), c.Rate.Duration)
	if c.InitialTokens != nil {
		bw = bw.WithInitialTokens(*c.InitialTokens)
	}
	return bw
}

// Configuration converts the rule into bucket.Configuration.
func (c RuleConfig) Configuration() (bucket.Configuration, error) {
	bws := make([]bucket.Bandwidth, 0, len(c.Bandwidths))
	for _, bwCfg := range c.Bandwidths {
		bws = append(bws, bwCfg.Bandwidth())
	}
	return bucket.NewConfiguration(bws...)
}

// SetProviderDefaults implements config.Config interface.
func (c *RulesConfig) SetProviderDefaults(_ config.DataProvider) {}

// Set sets rules from config.DataProvider.
// Implements config.Config interface.
func (c *RulesConfig) Set(dp config.DataProvider) error {
	if err := dp.UnmarshalKey(cfgKeyRules, &c.Rules, config.WithDecodeHook()); err != nil {
		return err
	}
	return c.Validate()
}

// Validate validates configuration.
func (c *RulesConfig) Validate() error {
	if len(c.Rules) == 0 {
		return config.WrapKeyErr(cfgKeyRules, fmt.Errorf("at least one rule should be specified"))
	}
	for i, rule := range c.Rules {
		if rule.Pattern == "" {
			return config.WrapKeyErr(cfgKeyRules, fmt.Errorf("rule #%d: pattern is missing", i))
		}
		if _, err := rule.Configuration(); err != nil {
			return config.WrapKeyErr(cfgKeyRules, fmt.Errorf("rule %q: %w", rule.Pattern, err))
		}
	}
	return nil
}

// RateValue represents a refill rate of the bandwidth in the N/(s|m|h) format.
type RateValue struct {
	Count    int
	Duration time.Duration
}

// String returns a string representation of the rate.
// Implements fmt.Stringer interface.
func (rv RateValue) String() string {
	if rv.Duration == 0 && rv.Count == 0 {
		return ""
	}
	var d string
	switch rv.Duration {
	case time.Second:
		d = "s"
	case time.Minute:
		d = "m"
	case time.Hour:
		d = "h"
	default:
		d = rv.Duration.String()
	}
	return fmt.Sprintf("%d/%s", rv.Count, d)
}

// UnmarshalText implements the encoding.TextUnmarshaler interface.
func (rv *RateValue) UnmarshalText(text []byte) error {
	return rv.unmarshal(string(text))
}

// UnmarshalJSON implements the json.Unmarshaler interface.
func (rv *RateValue) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (rv *RateValue) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err != nil {
		return err
	}
	return rv.unmarshal(text)
}

func (rv *RateValue) unmarshal(rate string) error {
	incorrectFormatErr := fmt.Errorf(
		"incorrect format for rate %q, should be N/(s|m|h) or N/<duration>, for example 10/s, 100/m, 5/250ms", rate)
	parts := strings.SplitN(strings.TrimSpace(rate), "/", 2)
	if len(parts) != 2 {
		return incorrectFormatErr
	}
	count, err := strconv.Atoi(parts[0])
	if err != nil || count <= 0 {
		return incorrectFormatErr
	}
	var dur time.Duration
	switch strings.ToLower(parts[1]) {
	case "s":
		dur = time.Second
	case "m":
		dur = time.Minute
	case "h":
		dur = time.Hour
	default:
		if dur, err = time.ParseDuration(parts[1]); err != nil || dur <= 0 {
			return incorrectFormatErr
		}
	}
	*rv = RateValue{Count: count, Duration: dur}
	return nil
}

// MarshalText implements the encoding.TextMarshaler interface.
func (rv RateValue) MarshalText() ([]byte, error) {
	return []byte(rv.String()), nil
}

// MarshalJSON implements the json.Marshaler interface.
func (rv RateValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(rv.String())
}

// MarshalYAML implements the yaml.Marshaler interface.
func (rv RateValue) MarshalYAML() (interface{}, error) {
	return rv.String(), nil
}

type compiledRule struct {
	pattern string
	match   func(s string) bool
	cfg     bucket.Configuration
}

// ruleSet resolves bucket configurations by keys.
type ruleSet struct {
	rules []compiledRule
}

func newRuleSet(cfg *RulesConfig) (*ruleSet, error) {
	rules := make([]compiledRule, 0, len(cfg.Rules))
	for _, rule := range cfg.Rules {
		bucketCfg, err := rule.Configuration()
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Pattern, err)
		}
		rules = append(rules, compiledRule{pattern: rule.Pattern, match: glob.Compile(rule.Pattern), cfg: bucketCfg})
	}
	return &ruleSet{rules: rules}, nil
}

// Match returns the configuration of the first rule matching the key.
func (rs *ruleSet) Match(key string) (bucket.Configuration, string, bool) {
	for i := range rs.rules {
		if rs.rules[i].match(key) {
			return rs.rules[i].cfg, rs.rules[i].pattern, true
		}
	}
	return bucket.Configuration{}, "", false
}

// Supplier returns a configuration supplier of the bucket.
// The supplier fails with ErrNoMatchingRule if no rule matches the key.
func (rs *ruleSet) Supplier(key string) backend.ConfigurationSupplier {
	return func(ctx context.Context) (bucket.Configuration, error) {
		cfg, _, ok := rs.Match(key)
		if !ok {
			return bucket.Configuration{}, fmt.Errorf("%w: %q", ErrNoMatchingRule, key)
		}
		return cfg, nil
	}
}
