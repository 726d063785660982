package publicchat

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter gates chat submissions to one per minInterval per identity.
// It is a pure backpressure gate: rejected submissions mutate nothing.
type RateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	m        map[string]*rate.Limiter
}

func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		interval: minInterval,
		m:        make(map[string]*rate.Limiter),
	}
}

// Allow reports whether identity may submit at now, recording the submission
// when it may.
func (rl *RateLimiter) Allow(identity string, now time.Time) bool {
	rl.mu.Lock()
	l, ok := rl.m[identity]
	if !ok {
		l = rate.NewLimiter(rate.Every(rl.interval), 1)
		rl.m[identity] = l
	}
	rl.mu.Unlock()
	return l.AllowN(now, 1)
}

// Forget drops the identity's entry. Called when its last session closes so
// the map stays bounded by the online population.
func (rl *RateLimiter) Forget(identity string) {
	rl.mu.Lock()
	delete(rl.m, identity)
	rl.mu.Unlock()
}
