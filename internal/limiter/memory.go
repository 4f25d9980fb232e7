package limiter

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Memory is an in-process limiter. Each username owns a token bucket of
// maxFails tokens refilled evenly over window; every failure spends a token.
type Memory struct {
	mu       sync.Mutex
	buckets  map[string]*rate.Limiter
	every    rate.Limit
	maxFails int
	now      func() time.Time
}

var _ Limiter = (*Memory)(nil)

// NewMemory constructs an in-memory limiter.
func NewMemory(window time.Duration, maxFails int) *Memory {
	if maxFails <= 0 {
		maxFails = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Memory{
		buckets:  make(map[string]*rate.Limiter),
		every:    rate.Every(window / time.Duration(maxFails)),
		maxFails: maxFails,
		now:      time.Now,
	}
}

func key(username string) string { return strings.ToLower(strings.TrimSpace(username)) }

func (m *Memory) bucket(username string) *rate.Limiter {
	k := key(username)
	b, ok := m.buckets[k]
	if !ok {
		b = rate.NewLimiter(m.every, m.maxFails)
		m.buckets[k] = b
	}
	return b
}

// retryAfter is how long until one token is available again.
func (m *Memory) retryAfter(b *rate.Limiter, now time.Time) time.Duration {
	r := b.ReserveN(now, 1)
	d := r.DelayFrom(now)
	r.CancelAt(now)
	return d
}

// Allow reports whether at least one attempt is left for username.
func (m *Memory) Allow(_ context.Context, username string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	b := m.bucket(username)
	if b.TokensAt(now) >= 1 {
		return true, 0, nil
	}
	return false, m.retryAfter(b, now), nil
}

// Success forgets the failure history of username.
func (m *Memory) Success(_ context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets, key(username))
	return nil
}

// Failure spends one attempt and reports whether username is now blocked.
func (m *Memory) Failure(_ context.Context, username string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	b := m.bucket(username)
	b.AllowN(now, 1)
	if b.TokensAt(now) >= 1 {
		return false, 0, nil
	}
	return true, m.retryAfter(b, now), nil
}
