// Package ratelimit implements fixed-window request counters keyed by client.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Store increments the counter for key. The first increment of a window starts its expiry.
// It returns the count so far and the time left in the window.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// Rule is a named limit such as 30 requests per 15 minutes
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Result describes one counted request
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter applies rules against a Store
type Limiter struct {
	store Store
}

// NewLimiter creates a limiter backed by store
func NewLimiter(store Store) *Limiter {
	return &Limiter{store: store}
}

// Key builds the counter key for a rule and client
func Key(rule Rule, clientID string) string {
	return fmt.Sprintf("rate_limit:%s:%s", rule.Name, clientID)
}

// Allow counts one request for clientID under rule
func (l *Limiter) Allow(ctx context.Context, rule Rule, clientID string) (Result, error) {
	count, ttl, err := l.store.Incr(ctx, Key(rule, clientID), rule.Window)
	if err != nil {
		return Result{Allowed: true, Limit: rule.Limit, Remaining: rule.Limit}, fmt.Errorf("rate limit store: %w", err)
	}

	remaining := rule.Limit - int(count)
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:   count <= int64(rule.Limit),
		Limit:     rule.Limit,
		Remaining: remaining,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
