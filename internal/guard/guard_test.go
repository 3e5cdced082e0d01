package guard

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"seckill-client/internal/clock"
)

func TestLimiterWindow(t *testing.T) {
	l := NewLimiter(time.Second, 1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAdmit("k", base))
	assert.False(t, l.TryAdmit("k", base.Add(500*time.Millisecond)))
	assert.True(t, l.TryAdmit("k", base.Add(time.Second)))
}

func TestLimiterDeniedCallNotRecorded(t *testing.T) {
	l := NewLimiter(time.Second, 1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAdmit("k", base))
	// Denied calls must not extend the window.
	assert.False(t, l.TryAdmit("k", base.Add(900*time.Millisecond)))
	assert.True(t, l.TryAdmit("k", base.Add(1100*time.Millisecond)))
}

func TestLimiterIndependentKeys(t *testing.T) {
	l := NewLimiter(time.Second, 1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAdmit(PurchaseKey(1), base))
	assert.True(t, l.TryAdmit(PurchaseKey(2), base))
	assert.False(t, l.TryAdmit(PurchaseKey(1), base.Add(time.Millisecond)))
	assert.False(t, l.TryAdmit(PurchaseKey(2), base.Add(time.Millisecond)))
}

func TestLimiterClear(t *testing.T) {
	l := NewLimiter(time.Second, 1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAdmit("a", base))
	assert.True(t, l.TryAdmit("b", base))

	l.Clear("a")
	assert.True(t, l.TryAdmit("a", base.Add(time.Millisecond)))
	assert.False(t, l.TryAdmit("b", base.Add(time.Millisecond)))

	l.ClearAll()
	assert.True(t, l.TryAdmit("b", base.Add(2*time.Millisecond)))
}

func TestLimiterSweepsStaleKeys(t *testing.T) {
	l := NewLimiter(time.Second, 1)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := int64(0); i < 100; i++ {
		assert.True(t, l.TryAdmit(PurchaseKey(i), base))
	}
	// Touching one key a window later prunes every fully elapsed entry.
	assert.True(t, l.TryAdmit(PurchaseKey(0), base.Add(2*time.Second)))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Len(t, l.entries, 1)
}

func TestLimiterHigherMax(t *testing.T) {
	l := NewLimiter(time.Second, 3)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, l.TryAdmit("k", base))
	assert.True(t, l.TryAdmit("k", base.Add(100*time.Millisecond)))
	assert.True(t, l.TryAdmit("k", base.Add(200*time.Millisecond)))
	assert.False(t, l.TryAdmit("k", base.Add(300*time.Millisecond)))
	// The first admission leaves the window.
	assert.True(t, l.TryAdmit("k", base.Add(1050*time.Millisecond)))
}

func TestThrottleLeadingEdge(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	calls := 0
	fn := Throttle(func() { calls++ }, time.Second, clk)

	fn()
	fn()
	fn()
	assert.Equal(t, 1, calls)

	clk.Add(999 * time.Millisecond)
	fn()
	assert.Equal(t, 1, calls)

	clk.Add(time.Millisecond)
	fn()
	assert.Equal(t, 2, calls)
}

func TestDebounceTrailingEdge(t *testing.T) {
	done := make(chan struct{}, 3)
	fn := Debounce(func() { done <- struct{}{} }, 30*time.Millisecond)

	fn()
	fn()
	fn()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced handler never fired")
	}

	// Only the trailing invocation runs.
	select {
	case <-done:
		t.Fatal("debounced handler fired more than once")
	case <-time.After(100 * time.Millisecond):
	}
}
