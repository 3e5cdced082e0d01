package timer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seckill-client/internal/clock"
)

func TestDecompose(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want Remaining
	}{
		{"zero", 0, Remaining{}},
		{"negative clamps", -time.Hour, Remaining{}},
		{"seconds only", 42 * time.Second, Remaining{Seconds: 42, Total: 42 * time.Second}},
		{
			"full decomposition",
			49*time.Hour + 5*time.Minute + 3*time.Second,
			Remaining{Days: 2, Hours: 1, Minutes: 5, Seconds: 3, Total: 49*time.Hour + 5*time.Minute + 3*time.Second},
		},
		{
			"sub-second truncates",
			1500 * time.Millisecond,
			Remaining{Seconds: 1, Total: 1500 * time.Millisecond},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decompose(tt.d))
		})
	}
}

func waitFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("countdown never fired")
	}
}

func assertNotFired(t *testing.T, fired <-chan struct{}) {
	t.Helper()
	select {
	case <-fired:
		t.Fatal("countdown fired unexpectedly")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCountdownFiresOncePerArming(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	fired := make(chan struct{}, 8)
	cd.OnComplete(func() { fired <- struct{}{} })

	cd.Arm(clk.Now().Add(time.Minute))
	phase, rem := cd.Snapshot()
	assert.Equal(t, Counting, phase)
	assert.Equal(t, time.Minute, rem.Total)

	clk.Add(2 * time.Minute)
	waitFired(t, fired)

	phase, rem = cd.Snapshot()
	assert.Equal(t, Elapsed, phase)
	assert.Zero(t, rem.Total)

	// The guard stays latched until the next arming.
	assertNotFired(t, fired)
}

func TestCountdownImmediateElapse(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	fired := make(chan struct{}, 1)
	cd.OnComplete(func() { fired <- struct{}{} })

	// Target already in the past fires synchronously on arm.
	cd.Arm(clk.Now().Add(-time.Second))
	waitFired(t, fired)

	phase, _ := cd.Snapshot()
	assert.Equal(t, Elapsed, phase)
}

func TestCountdownRearmResetsGuard(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	fired := make(chan struct{}, 8)
	cd.OnComplete(func() { fired <- struct{}{} })

	cd.Arm(clk.Now().Add(-time.Second))
	waitFired(t, fired)

	cd.Arm(clk.Now().Add(30 * time.Second))
	clk.Add(time.Minute)
	waitFired(t, fired)
}

func TestCountdownRearmSameTargetIsNoop(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	fired := make(chan struct{}, 8)
	cd.OnComplete(func() { fired <- struct{}{} })

	target := clk.Now().Add(time.Minute)
	cd.Arm(target)
	for i := 0; i < 10; i++ {
		cd.Arm(target)
	}

	clk.Add(2 * time.Minute)
	waitFired(t, fired)
	assertNotFired(t, fired)
}

func TestCountdownGatedPhases(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	fired := make(chan struct{}, 1)
	cd.OnComplete(func() { fired <- struct{}{} })

	gate := clk.Now().Add(time.Hour)
	target := gate.Add(2 * time.Hour)
	cd.ArmGated(gate, target)

	phase, rem := cd.Snapshot()
	assert.Equal(t, BeforeGate, phase)
	assert.Equal(t, time.Hour, rem.Total)

	clk.Add(90 * time.Minute)
	require.Eventually(t, func() bool {
		phase, _ := cd.Snapshot()
		return phase == Counting
	}, 2*time.Second, 5*time.Millisecond)

	_, rem = cd.Snapshot()
	assert.Equal(t, 90*time.Minute, rem.Total)
	assertNotFired(t, fired)

	clk.Add(2 * time.Hour)
	waitFired(t, fired)
}

func TestCountdownStopPreventsFiring(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)

	fired := make(chan struct{}, 1)
	cd.OnComplete(func() { fired <- struct{}{} })

	cd.Arm(clk.Now().Add(time.Minute))
	cd.Stop()

	clk.Add(2 * time.Minute)
	assertNotFired(t, fired)

	phase, _ := cd.Snapshot()
	assert.NotEqual(t, Elapsed, phase)
}

func TestCountdownLateBoundCallback(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	cd.Arm(clk.Now().Add(time.Minute))

	fired := make(chan struct{}, 1)
	cd.OnComplete(func() { fired <- struct{}{} })

	clk.Add(2 * time.Minute)
	waitFired(t, fired)
}

func TestCountdownSurvivesPanickingCallback(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	cd := NewCountdown(clk, 5*time.Millisecond)
	defer cd.Stop()

	cd.OnComplete(func() { panic("boom") })
	cd.Arm(clk.Now().Add(-time.Second))

	// A panicking callback must not poison later armings.
	fired := make(chan struct{}, 1)
	cd.OnComplete(func() { fired <- struct{}{} })
	cd.Arm(clk.Now().Add(-time.Second))
	waitFired(t, fired)
}
