package guard

import (
	"sync"
	"time"

	"seckill-client/internal/clock"
)

// Throttle wraps fn so it runs at most once per interval, leading edge: the
// first call fires immediately, later calls inside the interval are dropped.
func Throttle(fn func(), interval time.Duration, clk clock.Clock) func() {
	var mu sync.Mutex
	var last time.Time

	return func() {
		mu.Lock()
		now := clk.Now()
		if !last.IsZero() && now.Sub(last) < interval {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		fn()
	}
}

// Debounce wraps fn so it runs only after quiet has elapsed with no further
// calls, trailing edge. Each call restarts the quiet period.
func Debounce(fn func(), quiet time.Duration) func() {
	var mu sync.Mutex
	var timer *time.Timer

	return func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(quiet, fn)
	}
}
