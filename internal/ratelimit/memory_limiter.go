package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is the in-process fallback used when Redis is disabled. Keys
// map to timestamp buckets pruned on every check.
type MemoryLimiter struct {
	mu      sync.Mutex
	buckets map[string][]time.Time
	now     func() time.Time
}

// NewMemoryLimiter returns an in-memory limiter implementation.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		buckets: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Check enforces a sliding-window limit for the provided key.
func (m *MemoryLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	now := m.now()
	windowStart := now.Add(-window)

	m.mu.Lock()
	defer m.mu.Unlock()

	recent := m.buckets[key][:0]
	for _, t := range m.buckets[key] {
		if !t.Before(windowStart) {
			recent = append(recent, t)
		}
	}

	allowed := len(recent) < limit
	if allowed {
		recent = append(recent, now)
	}
	m.buckets[key] = recent

	remaining := limit - len(recent)
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Remaining: remaining,
		ResetAt:   now.Add(window),
	}

	if !allowed {
		return result, ErrLimitExceeded
	}

	return result, nil
}

// Cleanup removes keys that have been idle for more than maxAge.
func (m *MemoryLimiter) Cleanup(maxAge time.Duration) {
	if maxAge <= 0 {
		return
	}

	cutoff := m.now().Add(-maxAge)

	m.mu.Lock()
	defer m.mu.Unlock()

	for key, times := range m.buckets {
		if len(times) == 0 || times[len(times)-1].Before(cutoff) {
			delete(m.buckets, key)
		}
	}
}
