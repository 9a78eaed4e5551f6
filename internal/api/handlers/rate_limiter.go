package handlers

import (
	"context"
	"sync"
	"time"

	"github.com/zatekoja/Medicalreportanalysis/backend/internal/domain/providers"
	"github.com/zatekoja/Medicalreportanalysis/backend/internal/infrastructure/observability"
)

// RateLimiter bounds how often a key may perform an action within a window.
// Counters live in the shared cache when one is configured, otherwise in
// process memory.
type RateLimiter struct {
	cache  providers.CacheProvider
	local  *localRateLimiter
	limit  int
	window time.Duration
}

// NewRateLimiter creates a rate limiter; a non-positive limit disables it.
func NewRateLimiter(cache providers.CacheProvider, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		cache:  cache,
		local:  newLocalRateLimiter(),
		limit:  limit,
		window: window,
	}
}

// Allow records one attempt for key and reports whether it is within the limit
func (l *RateLimiter) Allow(ctx context.Context, key string) (bool, time.Duration) {
	if l == nil || l.limit <= 0 {
		return true, 0
	}
	if l.cache == nil {
		return l.local.allow(key, l.limit, l.window)
	}

	count, ttl, err := l.cache.Increment(ctx, key, l.window)
	if err != nil {
		// shared counter unavailable, degrade to this replica's counter
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("rate limit counter unavailable")
		return l.local.allow(key, l.limit, l.window)
	}
	if count > int64(l.limit) {
		if ttl <= 0 {
			ttl = l.window
		}
		return false, ttl
	}
	return true, 0
}

type localRateLimiter struct {
	mu     sync.Mutex
	states map[string]*localRateState
}

type localRateState struct {
	count   int
	resetAt time.Time
}

func newLocalRateLimiter() *localRateLimiter {
	return &localRateLimiter{
		states: make(map[string]*localRateState),
	}
}

func (l *localRateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	state, ok := l.states[key]
	if !ok || now.After(state.resetAt) {
		state = &localRateState{count: 0, resetAt: now.Add(window)}
		l.states[key] = state
	}

	if state.count >= limit {
		retryAfter := time.Until(state.resetAt)
		if retryAfter < 0 {
			retryAfter = window
		}
		return false, retryAfter
	}

	state.count++
	return true, 0
}
