/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bucket

import (
	"errors"
	"fmt"
	"strings"
)

// MaxBandwidths is the maximum number of bandwidths in one configuration.
const MaxBandwidths = 32

// Configuration is an ordered list of bandwidths applied conjunctively:
// tokens may be consumed only if all bandwidths have enough of them.
type Configuration struct {
	Bandwidths []Bandwidth
}

// NewConfiguration creates a new validated Configuration.
func NewConfiguration(bandwidths ...Bandwidth) (Configuration, error) {
	cfg := Configuration{Bandwidths: append([]Bandwidth(nil), bandwidths...)}
	if err := cfg.Validate(); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// MustConfiguration is like NewConfiguration but panics on invalid bandwidths.
func MustConfiguration(bandwidths ...Bandwidth) Configuration {
	cfg, err := NewConfiguration(bandwidths...)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate checks that the configuration has at least one bandwidth and all of them are valid.
func (c Configuration) Validate() error {
	if len(c.Bandwidths) == 0 {
		return errors.New("at least one bandwidth should be specified")
	}
	if len(c.Bandwidths) > MaxBandwidths {
		return fmt.Errorf("too many bandwidths: %d, max is %d", len(c.Bandwidths), MaxBandwidths)
	}
	for i, bw := range c.Bandwidths {
		if err := bw.Validate(); err != nil {
			return fmt.Errorf("bandwidth #%d: %w", i, err)
		}
	}
	return nil
}

// Equal reports whether two configurations have the same bandwidths in the same order.
func (c Configuration) Equal(other Configuration) bool {
	if len(c.Bandwidths) != len(other.Bandwidths) {
		return false
	}
	for i := range c.Bandwidths {
		if c.Bandwidths[i] != other.Bandwidths[i] {
			return false
		}
	}
	return true
}

func (c Configuration) String() string {
	parts := make([]string, 0, len(c.Bandwidths))
	for _, bw := range c.Bandwidths {
		parts = append(parts, "{"+bw.String()+"}")
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
