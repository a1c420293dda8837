package config

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is the in-process upload limiter. Each key gets a token bucket
// refilled at limit/window with a burst of limit.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(cfg *AppConfig) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		ttl:      cfg.UploadRateWindow + (5 * time.Second),
		stopCh:   make(chan struct{}),
	}

	go rl.cleanup()

	return rl
}

func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stopCh) })
}

func (rl *RateLimiter) getLimiter(key string, limit int, window time.Duration) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, exists := rl.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(rate.Every(window/time.Duration(limit)), limit)
		rl.visitors[key] = &visitor{limiter, time.Now()}
		return limiter
	}

	v.lastSeen = time.Now()
	return v.limiter
}

// Allow reports whether one more request for key fits the budget and, if not,
// how long the caller should wait.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	limiter := rl.getLimiter(key, limit, window)
	reservation := limiter.Reserve()
	if !reservation.OK() {
		return false, window, nil
	}

	delay := reservation.Delay()
	if delay == 0 {
		return true, 0, nil
	}

	reservation.Cancel()
	return false, delay, nil
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for key, v := range rl.visitors {
				if time.Since(v.lastSeen) > rl.ttl {
					delete(rl.visitors, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}
