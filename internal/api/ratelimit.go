package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterIdleTTL = 5 * time.Minute

// rateLimiterMap manages per-key rate limiters with automatic cleanup
type rateLimiterMap struct {
	mu       sync.Mutex
	limiters map[string]*ipLimiter
	idleTTL  time.Duration
	done     chan struct{}
	once     sync.Once
}

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newRateLimiterMap(idleTTL time.Duration) *rateLimiterMap {
	m := &rateLimiterMap{
		limiters: make(map[string]*ipLimiter),
		idleTTL:  idleTTL,
		done:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// allow spends one token from the limiter for key. A fresh limiter holds a
// full minute of tokens and refills one every minute/perMinute.
func (m *rateLimiterMap) allow(key string, perMinute int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.limiters[key]
	if !exists {
		entry = &ipLimiter{
			limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		}
		m.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// cleanupLoop drops limiters idle for longer than idleTTL
func (m *rateLimiterMap) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweep(time.Now())
		case <-m.done:
			return
		}
	}
}

func (m *rateLimiterMap) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key, entry := range m.limiters {
		if now.Sub(entry.lastSeen) > m.idleTTL {
			delete(m.limiters, key)
		}
	}
}

func (m *rateLimiterMap) stop() {
	m.once.Do(func() { close(m.done) })
}
