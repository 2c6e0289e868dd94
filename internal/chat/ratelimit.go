package chat

import (
	"sync"
	"time"
)

// rateLimiter is a sliding-window limiter. A limit of zero disables it.
type rateLimiter struct {
	mu     sync.Mutex
	window []time.Time
	max    int
	dur    time.Duration
	now    func() time.Time
}

func newRateLimiter(max int, dur time.Duration) *rateLimiter {
	return &rateLimiter{max: max, dur: dur, now: time.Now}
}

func (l *rateLimiter) allow() bool {
	if l.max <= 0 || l.dur <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.dur)

	// Remove expired entries
	valid := l.window[:0]
	for _, t := range l.window {
		if t.After(cutoff) {
			valid = append(valid, t)
		}
	}
	l.window = valid

	if len(l.window) >= l.max {
		return false
	}

	l.window = append(l.window, now)
	return true
}
