/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry provides backoff policies used to retry optimistic (compare-and-swap) updates
// of bucket states in the external store.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable reports whether the failed attempt may be repeated.
type IsRetryable func(error) bool

// RetryableFunc is a single attempt of an operation.
type RetryableFunc func(ctx context.Context) error

// Policy creates a fresh backoff for each retried operation.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc adapts a plain function to Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff implements Policy.
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoWithRetry calls fn until it succeeds, fails with an error rejected by isRetryable,
// the backoff of the policy stops or ctx is done.
// Nil isRetryable repeats any error. Nil notify disables notifications about repeated attempts.
// The error of the last attempt is returned.
func DoWithRetry(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	attempt := func() error {
		err := fn(bctx.Context())
		if err == nil || isRetryable == nil || isRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}
	return backoff.RetryNotify(attempt, bctx, notify)
}

// Default values for ExponentialBackoffPolicy.
const (
	DefaultInitialInterval     = 5 * time.Millisecond
	DefaultMaxInterval         = 500 * time.Millisecond
	DefaultRandomizationFactor = 0.5
	DefaultMultiplier          = 1.5
)

// ExponentialBackoffPolicy repeats attempts with jittered delays growing by DefaultMultiplier.
// Zero maxAttempts and zero maxElapsedTime mean no limit, so attempts go on until the context is done.
type ExponentialBackoffPolicy struct {
	initialInterval time.Duration
	maxInterval     time.Duration
	maxAttempts     int
	maxElapsedTime  time.Duration
}

// NewExponentialBackoffPolicy creates ExponentialBackoffPolicy that makes at most maxRetryAttempts repeated attempts.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxRetryAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{initialInterval: initialInterval, maxInterval: DefaultMaxInterval, maxAttempts: maxRetryAttempts}
}

// NewDefaultExponentialBackoffPolicy returns an unlimited exponential backoff policy with default intervals.
func NewDefaultExponentialBackoffPolicy() ExponentialBackoffPolicy {
	return NewExponentialBackoffPolicy(DefaultInitialInterval, 0)
}

// WithMaxInterval returns a copy of the policy with the given cap of a single delay.
func (p ExponentialBackoffPolicy) WithMaxInterval(maxInterval time.Duration) ExponentialBackoffPolicy {
	p.maxInterval = maxInterval
	return p
}

// WithMaxElapsedTime returns a copy of the policy that gives up after the given time since the first attempt.
func (p ExponentialBackoffPolicy) WithMaxElapsedTime(maxElapsedTime time.Duration) ExponentialBackoffPolicy {
	p.maxElapsedTime = maxElapsedTime
	return p
}

// NewBackOff implements Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.initialInterval
	eb.RandomizationFactor = DefaultRandomizationFactor
	eb.Multiplier = DefaultMultiplier
	if p.maxInterval > 0 {
		eb.MaxInterval = p.maxInterval
	}
	eb.MaxElapsedTime = p.maxElapsedTime
	return limitAttempts(eb, p.maxAttempts)
}

// ConstantBackoffPolicy repeats attempts with the same delay between them.
type ConstantBackoffPolicy struct {
	interval       time.Duration
	maxAttempts    int
	maxElapsedTime time.Duration
}

// NewConstantBackoffPolicy creates ConstantBackoffPolicy that makes at most maxRetryAttempts repeated attempts.
func NewConstantBackoffPolicy(interval time.Duration, maxRetryAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{interval: interval, maxAttempts: maxRetryAttempts}
}

// WithMaxElapsedTime returns a copy of the policy that gives up after the given time since the first attempt.
func (p ConstantBackoffPolicy) WithMaxElapsedTime(maxElapsedTime time.Duration) ConstantBackoffPolicy {
	p.maxElapsedTime = maxElapsedTime
	return p
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	var bf backoff.BackOff = backoff.NewConstantBackOff(p.interval)
	if p.maxElapsedTime > 0 {
		bf = &elapsedLimitBackOff{delegate: bf, maxElapsedTime: p.maxElapsedTime}
	}
	return limitAttempts(bf, p.maxAttempts)
}

func limitAttempts(bf backoff.BackOff, maxAttempts int) backoff.BackOff {
	if maxAttempts > 0 {
		bf = backoff.WithMaxRetries(bf, uint64(maxAttempts))
	}
	bf.Reset()
	return bf
}

// elapsedLimitBackOff stops the delegate backoff after maxElapsedTime since the last Reset.
type elapsedLimitBackOff struct {
	delegate       backoff.BackOff
	maxElapsedTime time.Duration
	startedAt      time.Time
}

func (b *elapsedLimitBackOff) Reset() {
	b.startedAt = time.Now()
	b.delegate.Reset()
}

func (b *elapsedLimitBackOff) NextBackOff() time.Duration {
	next := b.delegate.NextBackOff()
	if next == backoff.Stop || time.Since(b.startedAt)+next > b.maxElapsedTime {
		return backoff.Stop
	}
	return next
}
