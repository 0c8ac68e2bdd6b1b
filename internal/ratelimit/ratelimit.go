// Package ratelimit implements a per-client token bucket limiter for the
// HTTP gateway. Thread-safe; no background goroutines. Tokens refill
// lazily on each Allow call, and idle buckets are pruned in-line so a
// churning client population cannot grow the map without bound.
package ratelimit

import (
	"errors"
	"sync"
	"time"
)

// ErrRateLimited is returned when a client has exhausted its bucket.
var ErrRateLimited = errors.New("rate limit exceeded")

// How long a bucket may sit idle before it is dropped. An idle bucket is
// full anyway, so dropping it changes nothing for the client.
const idleEviction = 10 * time.Minute

// Config configures the token bucket limiter.
type Config struct {
	RequestsPerMinute int // Tokens added per minute. 0 = unlimited (Allow always succeeds).
	BurstSize         int // Maximum tokens in bucket. 0 = defaults to RequestsPerMinute.
}

// Limiter tracks an independent bucket per client key. Keys are whatever
// identifies the caller at the transport edge, an API key or a remote
// address; one client cannot exhaust another's quota.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	rate    float64 // tokens per second
	burst   float64 // max bucket capacity
}

type bucket struct {
	tokens   float64
	lastFill time.Time
}

// NewLimiter creates a limiter from cfg. If RequestsPerMinute is 0, Allow
// always succeeds.
func NewLimiter(cfg Config) *Limiter {
	burst := cfg.BurstSize
	if burst <= 0 {
		burst = cfg.RequestsPerMinute
	}
	if burst <= 0 {
		burst = 1 // safety floor
	}
	return &Limiter{
		clients: make(map[string]*bucket),
		rate:    float64(cfg.RequestsPerMinute) / 60.0,
		burst:   float64(burst),
	}
}

// Allow consumes one token for the client. Returns ErrRateLimited when
// the bucket is empty.
func (l *Limiter) Allow(clientKey string) error {
	// Unlimited mode.
	if l.rate <= 0 {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.evictIdle(now)

	b, ok := l.clients[clientKey]
	if !ok {
		// First request: start with a full bucket.
		b = &bucket{tokens: l.burst, lastFill: now}
		l.clients[clientKey] = b
	}

	// Refill based on elapsed time.
	elapsed := now.Sub(b.lastFill).Seconds()
	b.tokens += elapsed * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.lastFill = now

	if b.tokens < 1 {
		return ErrRateLimited
	}
	b.tokens--
	return nil
}

// evictIdle drops buckets untouched for idleEviction. Caller holds mu.
func (l *Limiter) evictIdle(now time.Time) {
	for key, b := range l.clients {
		if now.Sub(b.lastFill) > idleEviction {
			delete(l.clients, key)
		}
	}
}
