// Package server implements a token bucket rate limiter for per-session
// throttling that keeps one noisy client from flooding its room.
package server

import "time"

// tokenBucket admits up to burst lines at once and refills burst tokens per
// interval. Each session owns one and only touches it from its read loop, so
// it carries no lock.
type tokenBucket struct {
	burst     float64
	tokens    float64
	perSecond float64
	last      time.Time
	clock     func() time.Time
}

func newTokenBucket(cfg RateLimitConfig, clock func() time.Time) *tokenBucket {
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.RefillInterval <= 0 {
		cfg.RefillInterval = time.Second
	}
	if clock == nil {
		clock = time.Now
	}

	burst := float64(cfg.Burst)
	return &tokenBucket{
		burst:     burst,
		tokens:    burst,
		perSecond: burst / cfg.RefillInterval.Seconds(),
		last:      clock(),
		clock:     clock,
	}
}

// take consumes one token, reporting false when the bucket is empty.
func (b *tokenBucket) take() bool {
	now := b.clock()
	if elapsed := now.Sub(b.last); elapsed > 0 {
		b.tokens = min(b.burst, b.tokens+elapsed.Seconds()*b.perSecond)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
