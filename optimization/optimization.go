/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package optimization provides synchronization strategies that reduce the number of store round trips
// made for the same bucket by one process. Correctness never depends on them:
// concurrent processes are always reconciled by compare-and-swap in the store.
package optimization

import (
	"go.uber.org/atomic"

	"github.com/acronis/go-bucketgrid/backend"
	"github.com/acronis/go-bucketgrid/log"
)

// Optimization decorates backends. It is a stateless value,
// all per-backend state is created by Apply and ApplyAsync.
type Optimization interface {
	Apply(b backend.Backend) backend.Backend
	ApplyAsync(b backend.AsyncBackend) backend.AsyncBackend
}

// Stats contains in-process statistics of optimizations.
type Stats struct {
	// Requests is the number of requests passed through the optimization.
	Requests atomic.Int64
	// Batches is the number of round trips carrying more than one command.
	Batches atomic.Int64
	// BatchedRequests is the number of requests executed as a part of a batch.
	BatchedRequests atomic.Int64
	// Waits is the number of requests that waited for another request for the same key.
	Waits atomic.Int64
}

// Option is a functional option for optimizations.
type Option func(*options)

type options struct {
	logger  log.FieldLogger
	metrics backend.MetricsCollector
	stats   *Stats
}

// WithLogger sets the logger.
func WithLogger(logger log.FieldLogger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics collector. Only batch sizes are reported.
func WithMetrics(metrics backend.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithStats sets the Stats that will be updated by the optimization.
func WithStats(stats *Stats) Option {
	return func(o *options) {
		o.stats = stats
	}
}

func makeOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.NewDisabledLogger()
	}
	if o.metrics == nil {
		o.metrics = backend.DisabledMetrics()
	}
	if o.stats == nil {
		o.stats = &Stats{}
	}
	return o
}

type direct struct{}

// Direct returns the optimization that passes every request to the backend as is.
func Direct() Optimization {
	return direct{}
}

// None is the same as Direct.
func None() Optimization {
	return direct{}
}

func (direct) Apply(b backend.Backend) backend.Backend {
	return b
}

func (direct) ApplyAsync(b backend.AsyncBackend) backend.AsyncBackend {
	return b
}

type chain []Optimization

// Chain combines optimizations. The first one is applied to the backend first,
// so the last one becomes the outermost decorator.
func Chain(optimizations ...Optimization) Optimization {
	return chain(optimizations)
}

func (c chain) Apply(b backend.Backend) backend.Backend {
	for _, opt := range c {
		b = opt.Apply(b)
	}
	return b
}

func (c chain) ApplyAsync(b backend.AsyncBackend) backend.AsyncBackend {
	for _, opt := range c {
		b = opt.ApplyAsync(b)
	}
	return b
}
