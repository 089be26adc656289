// Package ratelimit tracks the daily budget of AI enrichment requests.
// When the budget is exhausted, records fall back to local enrichment.
package ratelimit

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type AIBudget struct {
	mu          sync.Mutex
	used        int
	max         int // 0 = unlimited
	resetTime   time.Time
	cacheHits   int
	cacheMisses int
}

// NewAIBudget creates a daily request budget. max <= 0 means unlimited.
func NewAIBudget(max int) *AIBudget {
	return &AIBudget{
		max:       max,
		resetTime: time.Now().Add(24 * time.Hour),
	}
}

// CanUse reports whether another AI request fits the budget.
func (b *AIBudget) CanUse() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.used >= b.max {
		slog.Warn("AI request budget reached", "used", b.used, "max", b.max)
		return false
	}
	return true
}

// Use consumes one request from the budget.
func (b *AIBudget) Use() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.checkReset()

	if b.max > 0 && b.used >= b.max {
		return fmt.Errorf("ai request budget exceeded (%d/%d)", b.used, b.max)
	}

	b.used++
	b.cacheMisses++
	slog.Debug("AI usage", "used", b.used, "max", b.max)
	return nil
}

// RecordCacheHit records that a cached enrichment saved a request.
func (b *AIBudget) RecordCacheHit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheHits++
}

// Stats returns current counters for the monitoring endpoint.
func (b *AIBudget) Stats() map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()

	hitRate := 0.0
	if total := b.cacheHits + b.cacheMisses; total > 0 {
		hitRate = float64(b.cacheHits) / float64(total) * 100
	}
	return map[string]interface{}{
		"ai_used":        b.used,
		"ai_limit":       b.max,
		"cache_hits":     b.cacheHits,
		"cache_misses":   b.cacheMisses,
		"cache_hit_rate": hitRate,
		"reset_time":     b.resetTime,
	}
}

func (b *AIBudget) checkReset() {
	if time.Now().After(b.resetTime) {
		slog.Info("resetting AI budget counters", "used", b.used)
		b.used = 0
		b.cacheHits = 0
		b.cacheMisses = 0
		b.resetTime = time.Now().Add(24 * time.Hour)
	}
}
