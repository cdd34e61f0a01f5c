package schedule

import "time"

// Frame is the "schedule a callback soon" primitive the scheduler debounces
// through. A browser host maps it onto animation frames; the default maps
// it onto a short one-shot timer; tests drive a manual implementation and
// advance it explicitly.
type Frame interface {
	Request(fn func())
}

// DefaultFrameDelay approximates one animation frame.
const DefaultFrameDelay = 16 * time.Millisecond

// TimerFrame schedules callbacks on a one-shot timer. The zero value uses
// DefaultFrameDelay.
type TimerFrame struct {
	Delay time.Duration
}

// Request implements Frame.
func (f TimerFrame) Request(fn func()) {
	d := f.Delay
	if d <= 0 {
		d = DefaultFrameDelay
	}
	time.AfterFunc(d, fn)
}
