// Package server implements a token bucket rate limiter for per-connection
// throttling that protects the relay from abusive senders.
package server

import (
	"sync"
	"time"
)

// rateLimiter grants up to capacity frames per refill interval. Tokens are
// counted as integers; one token regenerates every perToken duration, and
// the refill epoch only advances by whole tokens so fractional progress is
// never lost between calls.
type rateLimiter struct {
	mu       sync.Mutex
	capacity int
	perToken time.Duration
	tokens   int
	epoch    time.Time
}

func newRateLimiter(capacity int, interval time.Duration) *rateLimiter {
	if capacity <= 0 {
		capacity = 1
	}
	if interval <= 0 {
		interval = time.Second
	}

	perToken := interval / time.Duration(capacity)
	if perToken <= 0 {
		perToken = time.Nanosecond
	}

	return &rateLimiter{
		capacity: capacity,
		perToken: perToken,
		tokens:   capacity,
		epoch:    time.Now(),
	}
}

func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	regained := int(time.Since(rl.epoch) / rl.perToken)
	if regained > 0 {
		rl.epoch = rl.epoch.Add(time.Duration(regained) * rl.perToken)
		rl.tokens += regained
		if rl.tokens > rl.capacity {
			rl.tokens = rl.capacity
			rl.epoch = time.Now()
		}
	}

	if rl.tokens == 0 {
		return false
	}
	rl.tokens--
	return true
}
