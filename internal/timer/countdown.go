package timer

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"seckill-client/internal/clock"
	"seckill-client/internal/util"
)

// Phase is the countdown lifecycle at a given tick.
type Phase int

const (
	// Idle means the countdown has never been armed.
	Idle Phase = iota
	// BeforeGate means now is ahead of the gate instant; remaining counts
	// down to the gate.
	BeforeGate
	// Counting means remaining counts down to the target instant.
	Counting
	// Elapsed means the target has been reached and the ticking stopped.
	Elapsed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case BeforeGate:
		return "before-gate"
	case Counting:
		return "counting"
	case Elapsed:
		return "elapsed"
	}
	return "unknown"
}

// Remaining is a millisecond delta decomposed for display.
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
	Total   time.Duration
}

// Decompose splits d into day/hour/minute/second components. Negative inputs
// clamp to zero.
func Decompose(d time.Duration) Remaining {
	ms := d.Milliseconds()
	if ms < 0 {
		ms = 0
		d = 0
	}
	return Remaining{
		Days:    int(ms / (1000 * 60 * 60 * 24)),
		Hours:   int(ms % (1000 * 60 * 60 * 24) / (1000 * 60 * 60)),
		Minutes: int(ms % (1000 * 60 * 60) / (1000 * 60)),
		Seconds: int(ms % (1000 * 60) / 1000),
		Total:   d,
	}
}

// Countdown ticks toward a target instant, optionally gated by an earlier
// instant (counting first to the gate, then to the target). The completion
// callback fires exactly once per arming; re-arming with new instants resets
// that guard. The callback reference is read at fire time, so swapping it via
// OnComplete never restarts the ticking.
type Countdown struct {
	clk      clock.Clock
	interval time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	target     time.Time
	gate       time.Time
	hasGate    bool
	phase      Phase
	remaining  Remaining
	fired      bool
	onComplete func()
	stop       chan struct{}
	running    bool
	gen        int
}

// NewCountdown creates a stopped countdown evaluating every interval.
func NewCountdown(clk clock.Clock, interval time.Duration) *Countdown {
	return &Countdown{
		clk:      clk,
		interval: interval,
		logger:   util.GetLogger(),
		phase:    Idle,
	}
}

// OnComplete registers the completion callback. Late-bound: takes effect for
// the next firing without rearming.
func (c *Countdown) OnComplete(fn func()) {
	c.mu.Lock()
	c.onComplete = fn
	c.mu.Unlock()
}

// Arm starts counting down to target.
func (c *Countdown) Arm(target time.Time) {
	c.arm(time.Time{}, false, target)
}

// ArmGated starts counting down to gate first, then to target.
func (c *Countdown) ArmGated(gate, target time.Time) {
	c.arm(gate, true, target)
}

func (c *Countdown) arm(gate time.Time, hasGate bool, target time.Time) {
	c.mu.Lock()

	// Re-arming with identical instants while ticking is a no-op so that
	// repeated evaluation by callers cannot cause restart storms.
	if c.running && !c.fired && c.target.Equal(target) && c.hasGate == hasGate && (!hasGate || c.gate.Equal(gate)) {
		c.mu.Unlock()
		return
	}

	c.stopLocked()
	c.target = target
	c.gate = gate
	c.hasGate = hasGate
	c.fired = false
	c.gen++

	// First evaluation happens immediately so callers never observe a
	// default remaining value before the first tick.
	fire := c.evaluateLocked(c.clk.Now())
	if c.phase != Elapsed {
		stop := make(chan struct{})
		c.stop = stop
		c.running = true
		go c.loop(stop, c.gen)
	}
	c.mu.Unlock()

	if fire {
		c.fire()
	}
}

// Stop halts the ticking and releases the timer resource. Safe to call on a
// stopped countdown.
func (c *Countdown) Stop() {
	c.mu.Lock()
	c.stopLocked()
	c.gen++
	c.mu.Unlock()
}

func (c *Countdown) stopLocked() {
	if c.running {
		close(c.stop)
		c.running = false
	}
}

// Snapshot returns the current phase and remaining time.
func (c *Countdown) Snapshot() (Phase, Remaining) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase, c.remaining
}

func (c *Countdown) loop(stop chan struct{}, gen int) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if c.tick(gen) {
				return
			}
		}
	}
}

// tick re-evaluates once; reports whether the loop should end.
func (c *Countdown) tick(gen int) bool {
	c.mu.Lock()
	if gen != c.gen || !c.running {
		c.mu.Unlock()
		return true
	}
	fire := c.evaluateLocked(c.clk.Now())
	done := c.phase == Elapsed
	if done {
		c.running = false
	}
	c.mu.Unlock()

	if fire {
		c.fire()
	}
	return done
}

// evaluateLocked recomputes phase and remaining at now. Returns true when the
// completion callback must fire (at most once per arming).
func (c *Countdown) evaluateLocked(now time.Time) bool {
	if c.hasGate && now.Before(c.gate) {
		c.phase = BeforeGate
		c.remaining = Decompose(c.gate.Sub(now))
		return false
	}

	left := c.target.Sub(now)
	if left <= 0 {
		c.phase = Elapsed
		c.remaining = Decompose(0)
		if !c.fired {
			c.fired = true
			return true
		}
		return false
	}

	c.phase = Counting
	c.remaining = Decompose(left)
	return false
}

// fire invokes the current completion callback. A panicking callback must not
// kill the owning goroutine, so it is recovered and logged.
func (c *Countdown) fire() {
	c.mu.Lock()
	fn := c.onComplete
	c.mu.Unlock()
	if fn == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("countdown completion callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
