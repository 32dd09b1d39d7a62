package timectrl

import (
	"context"
	"sync"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

// Mode describes how Start advances simulation time.
type Mode int

const (
	// RealTime advances one Tick per wall-clock Tick.
	RealTime Mode = iota
	// Accelerated advances as quickly as the loop can run while still stepping by Tick.
	Accelerated
)

// Frame is one step of the clock as seen by listeners.
type Frame struct {
	Index   uint64
	SimTime time.Time
	// Elapsed is measured from StartTime, not from the previous frame.
	Elapsed time.Duration
	// JulianDate and SiderealAngle (radians) describe SimTime
	// astronomically.
	JulianDate    float64
	SiderealAngle float64
}

// TimeController drives simulation time and notifies registered listeners.
type TimeController struct {
	mu        sync.RWMutex
	StartTime time.Time
	Tick      time.Duration
	Mode      Mode

	currentTime time.Time
	frame       uint64
	rate        float64

	listeners []func(Frame)
}

// NewTimeController constructs a controller at start.
func NewTimeController(start time.Time, tick time.Duration, mode Mode) *TimeController {
	return &TimeController{
		StartTime:   start,
		Tick:        tick,
		Mode:        mode,
		currentTime: start,
		rate:        1,
	}
}

// Now returns the current simulation time.
func (tc *TimeController) Now() time.Time {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime
}

// Elapsed returns simulation time since StartTime.
func (tc *TimeController) Elapsed() time.Duration {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.currentTime.Sub(tc.StartTime)
}

// FrameIndex returns how many frames have been emitted.
func (tc *TimeController) FrameIndex() uint64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.frame
}

// SetTime jumps simulation time without emitting a frame.
func (tc *TimeController) SetTime(t time.Time) {
	tc.mu.Lock()
	tc.currentTime = t
	tc.mu.Unlock()
}

// SetRate scales every subsequent Advance. Negative rates are treated as 0.
func (tc *TimeController) SetRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	tc.mu.Lock()
	tc.rate = rate
	tc.mu.Unlock()
}

// Rate returns the current time scale.
func (tc *TimeController) Rate() float64 {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.rate
}

// AddListener registers a callback invoked on every frame. Listeners run on
// the goroutine that advances the clock.
func (tc *TimeController) AddListener(fn func(Frame)) {
	tc.mu.Lock()
	tc.listeners = append(tc.listeners, fn)
	tc.mu.Unlock()
}

// Advance moves simulation time forward by d scaled by the rate, emits a
// frame to every listener and returns it.
func (tc *TimeController) Advance(d time.Duration) Frame {
	tc.mu.Lock()
	if d > 0 {
		tc.currentTime = tc.currentTime.Add(time.Duration(float64(d) * tc.rate))
	}
	f := tc.frameLocked()
	tc.frame++
	listeners := append([]func(Frame){}, tc.listeners...)
	tc.mu.Unlock()

	for _, fn := range listeners {
		fn(f)
	}
	return f
}

// Step advances by one Tick.
func (tc *TimeController) Step() Frame {
	return tc.Advance(tc.Tick)
}

func (tc *TimeController) frameLocked() Frame {
	jd := JulianDate(tc.currentTime)
	return Frame{
		Index:         tc.frame,
		SimTime:       tc.currentTime,
		Elapsed:       tc.currentTime.Sub(tc.StartTime),
		JulianDate:    jd,
		SiderealAngle: satellite.ThetaG_JD(jd),
	}
}

// Start steps the controller in a separate goroutine until duration of
// simulation time has passed (forever when duration <= 0) or ctx is done.
// It returns a channel that is closed when the controller finishes.
func (tc *TimeController) Start(ctx context.Context, duration time.Duration) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if tc.Tick <= 0 {
			return
		}

		tc.mu.Lock()
		tc.currentTime = tc.StartTime
		tc.mu.Unlock()

		var ticks <-chan time.Time
		if tc.Mode == RealTime {
			ticker := time.NewTicker(tc.Tick)
			defer ticker.Stop()
			ticks = ticker.C
		}

		for {
			if duration > 0 && tc.Elapsed() >= duration {
				return
			}
			if ticks != nil {
				select {
				case <-ctx.Done():
					return
				case <-ticks:
				}
			} else if ctx.Err() != nil {
				return
			}
			tc.Step()
		}
	}()
	return done
}

// JulianDate converts t to a Julian date including the fractional second.
func JulianDate(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()
	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	return jd + float64(t.Nanosecond())/float64(time.Second)/86400
}
