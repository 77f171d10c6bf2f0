package graph

import (
	"math/rand"
	"time"
)

// RetryPolicy is a per-packet exponential-backoff retry configuration
// attached to a node. When processing a packet fails, the node retries the
// same packet after min(initialDelay * multiplier^retryCount, maxDelay),
// up to MaxRetries attempts, before surfacing the error and transitioning
// to the error state.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt (0 means
	// no retries: a single attempt only).
	MaxRetries int

	// InitialDelayMs is the delay before the first retry.
	InitialDelayMs int64

	// BackoffMultiplier scales the delay on each subsequent retry.
	BackoffMultiplier float64

	// MaxDelayMs caps the computed delay.
	MaxDelayMs int64
}

// Validate reports whether the policy's fields are internally consistent.
func (p *RetryPolicy) Validate() error {
	if p == nil {
		return nil
	}
	if p.MaxRetries < 0 {
		return NewValidationError("RetryPolicy.MaxRetries must be >= 0", nil)
	}
	if p.InitialDelayMs < 0 {
		return NewValidationError("RetryPolicy.InitialDelayMs must be >= 0", nil)
	}
	if p.MaxDelayMs > 0 && p.InitialDelayMs > 0 && p.MaxDelayMs < p.InitialDelayMs {
		return NewValidationError("RetryPolicy.MaxDelayMs must be >= InitialDelayMs", nil)
	}
	return nil
}

// Delay computes the backoff delay before the given retry attempt
// (0-indexed: retryCount 0 is the first retry after the original attempt).
// It implements min(initialDelay*multiplier^retryCount, maxDelay), per the
// runtime's retry contract.
func (p *RetryPolicy) Delay(retryCount int) time.Duration {
	if p == nil {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 1
	}
	delayMs := float64(p.InitialDelayMs)
	for i := 0; i < retryCount; i++ {
		delayMs *= mult
	}
	if p.MaxDelayMs > 0 && delayMs > float64(p.MaxDelayMs) {
		delayMs = float64(p.MaxDelayMs)
	}
	if delayMs < 0 {
		delayMs = 0
	}
	return time.Duration(delayMs) * time.Millisecond
}

// AllowsRetry reports whether another attempt is permitted given the
// number of retries already performed.
func (p *RetryPolicy) AllowsRetry(retriesSoFar int) bool {
	if p == nil {
		return false
	}
	return retriesSoFar < p.MaxRetries
}

// jitter returns a small random jitter in [0, base) to avoid synchronized
// retry storms across nodes sharing a RetryPolicy shape. Unused by the
// core retry contract, which uses a pure exponential formula with no
// jitter, but exposed for callers building their own scheduling on top
// of RetryPolicy.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return time.Duration(rand.Int63n(int64(base))) // #nosec G404 -- jitter timing, not security
}
