package guard

import (
	"fmt"
	"sync"
	"time"
)

// Default purchase policy: at most one attempt per offer per rolling second.
const (
	DefaultWindow = time.Second
	DefaultMax    = 1
)

// Limiter is a per-key sliding-window rate limiter. Windows are independent
// per key; admitting on one key never affects another.
type Limiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	entries map[string][]time.Time
}

// NewLimiter creates a limiter admitting at most max calls per key per window.
func NewLimiter(window time.Duration, max int) *Limiter {
	return &Limiter{
		window:  window,
		max:     max,
		entries: map[string][]time.Time{},
	}
}

// TryAdmit records and admits the call at now if fewer than max admissions
// remain inside the window for key. A denied call is not recorded.
func (l *Limiter) TryAdmit(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now)

	valid := prune(l.entries[key], now, l.window)
	if len(valid) >= l.max {
		l.entries[key] = valid
		return false
	}
	l.entries[key] = append(valid, now)
	return true
}

// Clear removes all admissions recorded for key.
func (l *Limiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

// ClearAll removes every recorded admission.
func (l *Limiter) ClearAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = map[string][]time.Time{}
}

// sweep drops keys whose windows have fully elapsed so the map cannot grow
// without bound across many offers.
func (l *Limiter) sweep(now time.Time) {
	for key, stamps := range l.entries {
		if len(stamps) == 0 || now.Sub(stamps[len(stamps)-1]) >= l.window {
			delete(l.entries, key)
		}
	}
}

func prune(stamps []time.Time, now time.Time, window time.Duration) []time.Time {
	valid := stamps[:0]
	for _, t := range stamps {
		if now.Sub(t) < window {
			valid = append(valid, t)
		}
	}
	return valid
}

// PurchaseKey is the limiter key for purchase attempts on one offer.
func PurchaseKey(goodsID int64) string {
	return fmt.Sprintf("seckill:%d", goodsID)
}
