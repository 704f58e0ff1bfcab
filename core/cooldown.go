package core

import (
	"sync"
	"time"
)

// Cooldown is a jumping-window rate limiter: a fresh window opens on the
// first trigger for a key, each trigger spends one token, and the full
// capacity refills when the period elapses.
type Cooldown[K comparable] struct {
	capacity int
	period   time.Duration

	mu      sync.Mutex
	windows map[K]*window
}

type window struct {
	tokens  int
	resetAt time.Time
}

// NewCooldown builds a limiter with the default capacity and period used
// when Trigger is called without per-key parameters.
func NewCooldown[K comparable](capacity int, period time.Duration) *Cooldown[K] {
	return &Cooldown[K]{
		capacity: capacity,
		period:   period,
		windows:  make(map[K]*window),
	}
}

// Trigger spends one token for the key. It reports whether the trigger is
// allowed, and if not, the time remaining until the window resets.
func (c *Cooldown[K]) Trigger(key K) (bool, time.Duration) {
	return c.TriggerWith(key, c.capacity, c.period)
}

// TriggerWith is Trigger with per-call capacity and period, for limits whose
// parameters come from per-starboard settings.
func (c *Cooldown[K]) TriggerWith(key K, capacity int, period time.Duration) (bool, time.Duration) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.evictStale(now)

	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		c.windows[key] = &window{tokens: capacity - 1, resetAt: now.Add(period)}
		return true, 0
	}
	if w.tokens <= 0 {
		return false, w.resetAt.Sub(now)
	}
	w.tokens--
	return true, 0
}

// evictStale drops a few expired windows. Called with the lock held on every
// trigger so the map cannot grow without bound between prunes.
func (c *Cooldown[K]) evictStale(now time.Time) {
	evicted := 0
	for k, w := range c.windows {
		if now.Before(w.resetAt) {
			continue
		}
		delete(c.windows, k)
		if evicted++; evicted >= 8 {
			return
		}
	}
}

// Prune drops every expired window. Run from the scheduler.
func (c *Cooldown[K]) Prune() {
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, w := range c.windows {
		if !now.Before(w.resetAt) {
			delete(c.windows, k)
		}
	}
}

// Len reports the live window count.
func (c *Cooldown[K]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.windows)
}

// KeyedMutex hands out at-most-one live guard per key. Contended callers get
// busy=false and are expected to abort; there is no queueing.
type KeyedMutex[K comparable] struct {
	mu   sync.Mutex
	held map[K]struct{}
}

// NewKeyedMutex builds an empty registry.
func NewKeyedMutex[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{held: make(map[K]struct{})}
}

// TryLock acquires the guard for the key. The returned release function must
// be called on every exit path; it is safe to call once only.
func (m *KeyedMutex[K]) TryLock(key K) (release func(), ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, busy := m.held[key]; busy {
		return nil, false
	}
	m.held[key] = struct{}{}
	return func() {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}, true
}
