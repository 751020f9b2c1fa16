/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package backend

import (
	"time"

	"github.com/acronis/go-bucketgrid/bucket"
	"github.com/acronis/go-bucketgrid/log"
	"github.com/acronis/go-bucketgrid/retry"
)

// ExpirationPolicy computes TTL of a bucket state that is about to be written.
// Non-positive TTL means no expiration.
type ExpirationPolicy interface {
	TTL(state bucket.GridState, nowNanos int64) time.Duration
}

// The ExpirationPolicyFunc type is an adapter to allow the use of ordinary functions as ExpirationPolicy.
type ExpirationPolicyFunc func(state bucket.GridState, nowNanos int64) time.Duration

// TTL implements ExpirationPolicy.
func (f ExpirationPolicyFunc) TTL(state bucket.GridState, nowNanos int64) time.Duration {
	return f(state, nowNanos)
}

// ExpireAfterFullRefill returns a policy that keeps a bucket in the store
// until it is completely refilled, plus keepAfterRefill.
// A full bucket looks exactly like a just created one, so its removal is not observable.
func ExpireAfterFullRefill(keepAfterRefill time.Duration) ExpirationPolicy {
	return ExpirationPolicyFunc(func(state bucket.GridState, nowNanos int64) time.Duration {
		toRefill := state.State.NanosToFullRefill(state.Configuration, nowNanos)
		ttl := time.Duration(toRefill) + keepAfterRefill
		if ttl < 0 { // overflow
			return 0
		}
		return ttl
	})
}

// Options represents options for CASBackend and AsyncCASBackend.
type Options struct {
	// Logger is used for logging. Disabled if nil.
	Logger log.FieldLogger

	// Metrics collects execution statistics. Disabled if nil.
	Metrics MetricsCollector

	// RetryPolicy defines delays between attempts after compare-and-swap conflicts.
	// By default, retries are not limited by count and last until the context is done.
	RetryPolicy retry.Policy

	// TimeMeter is the source of current time. System clock is used if nil.
	TimeMeter TimeMeter

	// ClockRegressionPolicy defines what happens when the clock goes backwards.
	ClockRegressionPolicy ClockRegressionPolicy

	// Expiration defines TTL of written states.
	// It takes effect only if the store implements store.ExpiringStore.
	Expiration ExpirationPolicy
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = log.NewDisabledLogger()
	}
	if o.Metrics == nil {
		o.Metrics = disabledMetrics{}
	}
	if o.RetryPolicy == nil {
		o.RetryPolicy = retry.NewDefaultExponentialBackoffPolicy()
	}
	if o.TimeMeter == nil {
		o.TimeMeter = SystemTimeMeter{}
	}
	return o
}
