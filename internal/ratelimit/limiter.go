// Package ratelimit throttles MCP tool calls with per-tool token buckets.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/recuria/recuria/internal/clock"
)

// Limiter is a token bucket. It is safe for concurrent use.
type Limiter struct {
	mu     sync.Mutex
	clock  clock.Clock
	rate   float64 // tokens per second
	burst  float64
	tokens float64
	last   time.Time
}

// NewLimiter creates a full bucket refilling at rate tokens per second up
// to burst tokens.
func NewLimiter(rate float64, burst int, c clock.Clock) *Limiter {
	if c == nil {
		c = clock.System{}
	}
	return &Limiter{
		clock:  c,
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   c.Now(),
	}
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock.Now()
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens = min(l.burst, l.tokens+l.rate*elapsed)
		l.last = now
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// NewToolLimiters returns the default limits for the recuria tools.
// Simulations are CPU-bound, so they get the tightest budget.
func NewToolLimiters(c clock.Clock) ToolLimiters {
	return ToolLimiters{
		"recuria_simulate": NewLimiter(20.0/60.0, 5, c), // 20/minute, burst 5
		"recuria_history":  NewLimiter(1.0, 10, c),      // 60/minute, burst 10
		"recuria_run":      NewLimiter(1.0, 10, c),      // 60/minute, burst 10
		"recuria_export":   NewLimiter(5.0/60.0, 2, c),  // 5/minute, burst 2
	}
}

// Check returns an error when tool is over its limit. Tools without a
// limiter are always allowed.
func (tl ToolLimiters) Check(tool string) error {
	l, ok := tl[tool]
	if !ok {
		return nil
	}
	if !l.Allow() {
		return fmt.Errorf("rate limit exceeded for %s, please try again shortly", tool)
	}
	return nil
}
