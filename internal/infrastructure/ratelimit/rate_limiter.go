// Package ratelimit throttles per-user actions with token buckets.
package ratelimit

import (
	"sync"
	"time"
)

type bucket struct {
	mu         sync.Mutex
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
}

func newBucket(maxTokens, refillRate int, refillTime time.Duration) *bucket {
	return &bucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: time.Now(),
	}
}

// allow consumes one token if available, otherwise reports how long until
// the next one.
func (b *bucket) allow() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	add := int(now.Sub(b.lastRefill)/b.refillTime) * b.refillRate
	if add > 0 {
		b.tokens += add
		if b.tokens > b.maxTokens {
			b.tokens = b.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true, 0
	}
	return false, b.lastRefill.Add(b.refillTime).Sub(now)
}

// RateLimiter tracks one bucket per (user, action) pair.
type RateLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*bucket)}
}

// Allow reports whether the user may perform the action now, and if not, how
// long to wait.
func (rl *RateLimiter) Allow(userID, action string) (bool, time.Duration) {
	key := userID + ":" + action

	rl.mu.RLock()
	b, ok := rl.buckets[key]
	rl.mu.RUnlock()

	if !ok {
		rl.mu.Lock()
		if b, ok = rl.buckets[key]; !ok {
			b = bucketFor(action)
			rl.buckets[key] = b
		}
		rl.mu.Unlock()
	}

	return b.allow()
}

func bucketFor(action string) *bucket {
	switch action {
	case "send_message":
		// 20 messages per minute
		return newBucket(20, 1, 3*time.Second)
	case "upload_attachment":
		// 6 uploads per minute
		return newBucket(6, 1, 10*time.Second)
	case "file_report":
		// 5 reports per hour
		return newBucket(5, 1, 12*time.Minute)
	default:
		return newBucket(30, 1, 2*time.Second)
	}
}

// Cleanup drops buckets idle for over an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for key, b := range rl.buckets {
		b.mu.Lock()
		idle := now.Sub(b.lastRefill) > time.Hour
		b.mu.Unlock()
		if idle {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine prunes idle buckets on a fixed interval.
func (rl *RateLimiter) StartCleanupRoutine() {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rl.Cleanup()
		}
	}()
}
