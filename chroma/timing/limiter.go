package timing

import "time"

// Constants for Game Boy timing.
const (
	CyclesPerFrame = 70224
	CPUFrequency   = 4194304
)

// Limiter controls frame rate timing for emulation.
type Limiter interface {
	// WaitForNextFrame blocks until it's time for the next frame.
	// Returns immediately if timing is behind schedule.
	WaitForNextFrame()

	// Reset resets the timing state, useful after pauses.
	Reset()
}

// TargetFPS is the exact hardware frame rate.
func TargetFPS() float64 {
	return float64(CPUFrequency) / float64(CyclesPerFrame)
}

// FrameDuration returns the target duration of a single frame at the given
// emulation speed (10 = real time, 20 = double speed fast-forward).
func FrameDuration(speed int) time.Duration {
	if speed < 10 {
		speed = 10
	}
	return time.Duration(float64(time.Second) / TargetFPS() * 10 / float64(speed))
}

// NewNoOpLimiter returns a limiter that doesn't limit (for headless mode).
func NewNoOpLimiter() Limiter {
	return &noOpLimiter{}
}

type noOpLimiter struct{}

func (n *noOpLimiter) WaitForNextFrame() {}
func (n *noOpLimiter) Reset()            {}

// TickerLimiter uses a time.Ticker for simple, consistent frame pacing.
type TickerLimiter struct {
	ticker *time.Ticker
	period time.Duration
}

// NewTickerLimiter creates a limiter pacing frames for the given emulation
// speed.
func NewTickerLimiter(speed int) *TickerLimiter {
	period := FrameDuration(speed)
	return &TickerLimiter{
		ticker: time.NewTicker(period),
		period: period,
	}
}

func (t *TickerLimiter) WaitForNextFrame() {
	<-t.ticker.C
}

func (t *TickerLimiter) Reset() {
	t.ticker.Reset(t.period)
}

func (t *TickerLimiter) Stop() {
	t.ticker.Stop()
}
