// Package ratelimit provides a sliding-window token budget for LLM API calls,
// complementing the per-request limiter from golang.org/x/time/rate.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a tokens-per-minute budget. Callers report the token
// cost of each request before sending it; Wait blocks until the window has
// room for the requested amount.
type TokenLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	spent    []tokenSpend
}

type tokenSpend struct {
	at     time.Time
	tokens int
}

// NewTokenLimiter creates a limiter with the given tokens-per-minute budget.
func NewTokenLimiter(tokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		limit:  tokensPerMinute,
		window: time.Minute,
	}
}

// GetRemaining returns the unspent budget in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prune(time.Now())
	return l.limit - l.used()
}

// Wait blocks until tokens fit inside the window budget or the context is
// cancelled. Requests larger than the whole budget are admitted alone once
// the window drains, rather than blocking forever.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.mu.Lock()
		now := time.Now()
		l.prune(now)
		used := l.used()
		if used+tokens <= l.limit || (tokens > l.limit && used == 0) {
			l.spent = append(l.spent, tokenSpend{at: now, tokens: tokens})
			l.mu.Unlock()
			return nil
		}
		wait := l.spent[0].at.Add(l.window).Sub(now)
		l.mu.Unlock()

		if wait < 50*time.Millisecond {
			wait = 50 * time.Millisecond
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

func (l *TokenLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.spent) && l.spent[i].at.Before(cutoff) {
		i++
	}
	l.spent = l.spent[i:]
}

func (l *TokenLimiter) used() int {
	total := 0
	for _, s := range l.spent {
		total += s.tokens
	}
	return total
}
