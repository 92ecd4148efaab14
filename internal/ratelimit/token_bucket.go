package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket is an in-memory keyed limiter used on the public callback
// endpoints. Buckets refill continuously at rate tokens per second.
type TokenBucket struct {
	mu      sync.Mutex
	rate    float64
	burst   float64
	buckets map[string]*bucket
}

type bucket struct {
	tokens float64
	ts     time.Time
}

func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:    rate,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
	}
}

func (t *TokenBucket) Allow(key string) bool {
	if t == nil || key == "" {
		return false
	}

	now := time.Now()

	t.mu.Lock()
	defer t.mu.Unlock()

	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{tokens: t.burst, ts: now}
		t.buckets[key] = b
	} else {
		delta := now.Sub(b.ts).Seconds()
		if delta > 0 {
			b.tokens += delta * t.rate
			if b.tokens > t.burst {
				b.tokens = t.burst
			}
		}
		b.ts = now
	}

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}
