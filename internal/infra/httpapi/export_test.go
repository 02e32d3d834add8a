package httpapi

import "time"

// SetClock replaces the limiter's time source for testing.
func (rl *RateLimiter) SetClock(now func() time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.now = now
}
