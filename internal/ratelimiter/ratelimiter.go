// Package ratelimiter provides token bucket rate limiting for API clients.
package ratelimiter

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// unlimited is used in place of rate.Inf, which has edge cases with burst.
const unlimited = 1_000_000_000

// RateLimiter is a single token bucket.
//
// Thread safety:
// All methods are safe for concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// New creates a RateLimiter allowing requestsPerSecond sustained with bursts
// of up to burst requests.
//
// Special cases:
//   - requestsPerSecond = 0: No rate limiting (unlimited)
//   - burst = 0: defaults to requestsPerSecond
func New(requestsPerSecond, burst uint) *RateLimiter {
	if requestsPerSecond == 0 {
		requestsPerSecond = unlimited
		burst = unlimited
	}
	if burst == 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), int(burst)),
	}
}

// Allow reports whether a request may proceed now, consuming a token if so.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}

// Tokens returns the number of tokens currently available.
func (r *RateLimiter) Tokens() float64 {
	return r.limiter.Tokens()
}

// Keyed keeps one token bucket per client key (typically the remote IP).
//
// Buckets idle for longer than the configured TTL are dropped by Prune so
// that memory stays bounded by the number of recently active clients.
//
// Thread safety:
// All methods are safe for concurrent use.
type Keyed struct {
	rps   uint
	burst uint
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	clients map[string]*client
}

type client struct {
	limiter  *RateLimiter
	lastSeen time.Time
}

// NewKeyed creates a per-key limiter. A zero requestsPerSecond disables
// limiting: Allow always returns true and no state is kept.
func NewKeyed(requestsPerSecond, burst uint, idleTTL time.Duration) *Keyed {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Keyed{
		rps:     requestsPerSecond,
		burst:   burst,
		ttl:     idleTTL,
		now:     time.Now,
		clients: make(map[string]*client),
	}
}

// Enabled reports whether any limit is enforced.
func (k *Keyed) Enabled() bool {
	return k != nil && k.rps > 0
}

// Allow reports whether the client identified by key may proceed.
func (k *Keyed) Allow(key string) bool {
	if !k.Enabled() {
		return true
	}

	k.mu.Lock()
	c, ok := k.clients[key]
	if !ok {
		c = &client{limiter: New(k.rps, k.burst)}
		k.clients[key] = c
	}
	c.lastSeen = k.now()
	k.mu.Unlock()

	return c.limiter.Allow()
}

// Prune drops buckets not used within the idle TTL and returns how many
// were removed.
func (k *Keyed) Prune() int {
	if !k.Enabled() {
		return 0
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	cutoff := k.now().Add(-k.ttl)
	removed := 0
	for key, c := range k.clients {
		if c.lastSeen.Before(cutoff) {
			delete(k.clients, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked clients.
func (k *Keyed) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.clients)
}
