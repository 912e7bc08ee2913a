package scraper

import (
	"context"
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

const (
	// refillWindow is how long a fully drained bucket takes to refill.
	// With N workers that caps sustained throughput at N requests per
	// 15 seconds, which is what the admission site tolerates without
	// throttling.
	refillWindow = 15 * time.Second

	// refillPollInterval is how often a blocked Wait re-checks the bucket.
	refillPollInterval = 100 * time.Millisecond
)

// RateLimiter spaces scrape requests with a token bucket plus a random
// per-request delay. The bucket bounds bursts to the worker count; the
// delay keeps consecutive requests from arriving as a train.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	minDelay time.Duration
	maxDelay time.Duration
}

// NewRateLimiter creates a rate limiter sized for the given worker count.
func NewRateLimiter(workers int, minDelay, maxDelay time.Duration) *RateLimiter {
	if workers < 1 {
		workers = 1
	}
	if maxDelay < minDelay {
		maxDelay = minDelay
	}

	return &RateLimiter{
		tokens:     float64(workers),
		maxTokens:  float64(workers),
		refillRate: float64(workers) / refillWindow.Seconds(),
		lastRefill: time.Now(),
		minDelay:   minDelay,
		maxDelay:   maxDelay,
	}
}

// Wait blocks until a token is available, then sleeps a random delay in
// [minDelay, maxDelay] before letting the request proceed.
func (rl *RateLimiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if rl.take() {
			break
		}
		if err := Sleep(ctx, refillPollInterval); err != nil {
			return err
		}
	}

	return Sleep(ctx, rl.randomDelay())
}

// take refills the bucket for elapsed time and consumes one token if
// available.
func (rl *RateLimiter) take() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	rl.tokens += now.Sub(rl.lastRefill).Seconds() * rl.refillRate
	if rl.tokens > rl.maxTokens {
		rl.tokens = rl.maxTokens
	}
	rl.lastRefill = now

	if rl.tokens < 1.0 {
		return false
	}
	rl.tokens -= 1.0
	return true
}

// randomDelay returns a uniformly random duration in [minDelay, maxDelay].
func (rl *RateLimiter) randomDelay() time.Duration {
	if rl.maxDelay <= rl.minDelay {
		return rl.minDelay
	}

	span := int64(rl.maxDelay - rl.minDelay)
	n, err := rand.Int(rand.Reader, big.NewInt(span+1))
	if err != nil {
		return rl.minDelay
	}
	return rl.minDelay + time.Duration(n.Int64())
}
