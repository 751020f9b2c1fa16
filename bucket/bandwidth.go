/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package bucket

import (
	"fmt"
	"math"
	"math/bits"
	"time"
)

// Bandwidth is a single capacity + refill-rate limit of a bucket.
// RefillTokensPerPeriod tokens are added every RefillPeriodNanos, but never above Capacity.
type Bandwidth struct {
	Capacity              int64
	RefillPeriodNanos     int64
	RefillTokensPerPeriod int64
	InitialTokens         int64
}

// Simple returns a bandwidth that holds up to capacity tokens, refills capacity tokens per period,
// and starts full.
func Simple(capacity int64, period time.Duration) Bandwidth {
	return Classic(capacity, capacity, period)
}

// Classic returns a bandwidth that holds up to capacity tokens, refills tokens per period,
// and starts full.
func Classic(capacity, tokens int64, period time.Duration) Bandwidth {
	return Bandwidth{
		Capacity:              capacity,
		RefillPeriodNanos:     int64(period),
		RefillTokensPerPeriod: tokens,
		InitialTokens:         capacity,
	}
}

// WithInitialTokens returns a copy of the bandwidth with the given amount of initial tokens.
func (bw Bandwidth) WithInitialTokens(tokens int64) Bandwidth {
	bw.InitialTokens = tokens
	return bw
}

// Validate checks bandwidth invariants.
func (bw Bandwidth) Validate() error {
	if bw.Capacity <= 0 {
		return fmt.Errorf("capacity must be greater than 0, got %d", bw.Capacity)
	}
	if bw.RefillPeriodNanos <= 0 {
		return fmt.Errorf("refill period must be greater than 0, got %d", bw.RefillPeriodNanos)
	}
	if bw.RefillTokensPerPeriod <= 0 {
		return fmt.Errorf("refill tokens per period must be greater than 0, got %d", bw.RefillTokensPerPeriod)
	}
	if bw.InitialTokens < 0 || bw.InitialTokens > bw.Capacity {
		return fmt.Errorf("initial tokens must be in range [0, %d], got %d", bw.Capacity, bw.InitialTokens)
	}
	return nil
}

// String returns a human-readable representation of the bandwidth.
func (bw Bandwidth) String() string {
	return fmt.Sprintf("capacity=%d refill=%d/%s initial=%d",
		bw.Capacity, bw.RefillTokensPerPeriod, time.Duration(bw.RefillPeriodNanos), bw.InitialTokens)
}

// Refill computes the amount of tokens after refilling at the moment now.
// Tokens are added only in whole units: when less than one token was accumulated since lastRefillNanos,
// both values are returned unchanged, so sub-token progress is not lost by moving the refill time.
// If now is behind lastRefillNanos, refill is skipped and regressed is true.
func (bw Bandwidth) Refill(tokens, lastRefillNanos, now int64) (newTokens, newLastRefillNanos int64, regressed bool) {
	if now < lastRefillNanos {
		return tokens, lastRefillNanos, true
	}
	delta := bw.tokensForElapsed(now - lastRefillNanos)
	if delta <= 0 {
		return tokens, lastRefillNanos, false
	}
	return bw.clampAdd(tokens, delta), now, false
}

// NanosToWaitFor returns how long it takes (starting at now) until the given amount of tokens is available.
// It returns -1 if the amount exceeds the capacity and thus never becomes available.
func (bw Bandwidth) NanosToWaitFor(tokens, lastRefillNanos, now, wanted int64) int64 {
	if wanted > bw.Capacity {
		return -1
	}
	deficit := wanted - tokens
	if deficit <= 0 {
		return 0
	}
	need, ok := mulDivCeil(deficit, bw.RefillPeriodNanos, bw.RefillTokensPerPeriod)
	if !ok {
		return math.MaxInt64
	}
	readyAt := lastRefillNanos + need
	if readyAt < lastRefillNanos { // overflow
		return math.MaxInt64
	}
	if readyAt <= now {
		return 0
	}
	return readyAt - now
}

// NanosToRefill returns the time needed to refill the given amount of tokens from scratch.
// It is a pure function of the bandwidth parameters.
func (bw Bandwidth) NanosToRefill(tokens int64) int64 {
	if tokens <= 0 {
		return 0
	}
	res, ok := mulDivFloor(bw.RefillPeriodNanos, tokens, bw.RefillTokensPerPeriod)
	if !ok {
		return math.MaxInt64
	}
	return res
}

// tokensForElapsed returns floor(elapsed * RefillTokensPerPeriod / RefillPeriodNanos) bounded by Capacity.
func (bw Bandwidth) tokensForElapsed(elapsed int64) int64 {
	if elapsed <= 0 {
		return 0
	}
	periods := elapsed / bw.RefillPeriodNanos
	if periods > bw.Capacity/bw.RefillTokensPerPeriod {
		return bw.Capacity
	}
	partial, _ := mulDivFloor(elapsed%bw.RefillPeriodNanos, bw.RefillTokensPerPeriod, bw.RefillPeriodNanos)
	res := periods*bw.RefillTokensPerPeriod + partial
	if res > bw.Capacity {
		return bw.Capacity
	}
	return res
}

func (bw Bandwidth) clampAdd(tokens, delta int64) int64 {
	if tokens >= bw.Capacity {
		return tokens
	}
	if delta >= bw.Capacity-tokens {
		return bw.Capacity
	}
	return tokens + delta
}

// mulDivFloor returns floor(a*b/c) for non-negative a, b and positive c.
// ok is false if the result does not fit into int64.
func mulDivFloor(a, b, c int64) (res int64, ok bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(c) {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, uint64(c))
	if q > math.MaxInt64 {
		return 0, false
	}
	return int64(q), true
}

// mulDivCeil returns ceil(a*b/c) for non-negative a, b and positive c.
func mulDivCeil(a, b, c int64) (res int64, ok bool) {
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(c) {
		return 0, false
	}
	q, r := bits.Div64(hi, lo, uint64(c))
	if r != 0 {
		q++
	}
	if q > math.MaxInt64 {
		return 0, false
	}
	return int64(q), true
}
