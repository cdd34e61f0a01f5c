// Package testutil provides deterministic test doubles: a manually advanced
// frame, a sequential id source, a silent logger, and a scriptable style
// engine.
package testutil

import "sync"

// ManualFrame implements the scheduler's frame primitive with explicit
// advancement: callbacks queue until the test calls Fire. This makes
// debounce behavior testable without real timers.
//
// Thread-safety: all methods are safe for concurrent use.
type ManualFrame struct {
	mu    sync.Mutex
	queue []func()
}

// NewManualFrame creates an empty manual frame.
func NewManualFrame() *ManualFrame {
	return &ManualFrame{}
}

// Request queues a callback for the next Fire.
func (f *ManualFrame) Request(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fn)
}

// Pending returns the number of queued callbacks.
func (f *ManualFrame) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Fire runs every queued callback and returns how many ran. Callbacks
// requested during Fire queue for the next Fire, as a real frame would.
func (f *ManualFrame) Fire() int {
	f.mu.Lock()
	queue := f.queue
	f.queue = nil
	f.mu.Unlock()

	for _, fn := range queue {
		fn()
	}
	return len(queue)
}
