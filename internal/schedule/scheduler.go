// Package schedule coalesces bursts of document change into single render
// passes.
//
// The scheduler is a two-state machine:
//
//	Idle    -- no render scheduled
//	Pending -- a frame callback is scheduled; further triggers are absorbed
//
// Any trigger (citation-changed event, mutation of a known cluster anchor,
// insertion of a new cluster anchor) moves Idle to Pending and requests one
// frame callback. When the frame fires the machine returns to Idle and the
// bound render function runs exactly once. Triggers arriving while Pending
// collapse into that single run - coalescing, not queuing.
package schedule

import (
	"log/slog"
	"sync"

	"github.com/roach88/citekit/internal/document"
)

// State is the scheduler state.
type State int

const (
	// StateIdle means no render is scheduled.
	StateIdle State = iota
	// StatePending means a frame callback is scheduled.
	StatePending
)

// Scheduler debounces change triggers into single render runs.
type Scheduler struct {
	frame  Frame
	run    func()
	logger *slog.Logger

	mu          sync.Mutex
	state       State
	observed    map[string]struct{} // anchor node ids already under observation
	disconnects []func()
	disposed    bool
}

// New creates an idle scheduler bound to a render function. The render
// function runs on the frame's goroutine.
func New(frame Frame, run func(), logger *slog.Logger) *Scheduler {
	return &Scheduler{
		frame:    frame,
		run:      run,
		logger:   logger,
		observed: make(map[string]struct{}),
	}
}

// Bind subscribes the scheduler to its three trigger sources on a document:
// the session's citation-changed event, insertion of nodes matching pred
// (new cluster anchors, which also come under mutation observation), and -
// via Observe - subtree mutation of known anchors.
func (s *Scheduler) Bind(doc document.Document, eventName string, pred func(document.Node) bool) {
	remove := doc.AddEventListener(eventName, func(any) { s.Trigger() })
	disconnect := doc.ObserveInsertions(pred, func(n document.Node) {
		s.Observe(doc, n)
		s.Trigger()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		remove()
		disconnect()
		return
	}
	s.disconnects = append(s.disconnects, remove, disconnect)
}

// Observe puts an anchor under mutation observation. Each anchor is
// observed at most once, keyed by node identity; repeat calls are no-ops.
func (s *Scheduler) Observe(doc document.Document, n document.Node) {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	if _, seen := s.observed[n.ID()]; seen {
		s.mu.Unlock()
		return
	}
	s.observed[n.ID()] = struct{}{}
	s.mu.Unlock()

	disconnect := doc.ObserveSubtree(n, s.Trigger)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		disconnect()
		return
	}
	s.disconnects = append(s.disconnects, disconnect)
}

// Trigger moves Idle to Pending and requests a frame. Triggers while
// Pending are absorbed.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	if s.disposed || s.state == StatePending {
		s.mu.Unlock()
		return
	}
	s.state = StatePending
	s.mu.Unlock()

	s.frame.Request(s.fire)
}

// fire is the frame callback: back to Idle, then one render run. The state
// reset happens even when disposed, so a scheduler torn down while Pending
// never reports a frame that will not come.
func (s *Scheduler) fire() {
	s.mu.Lock()
	s.state = StateIdle
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.run()
}

// State returns the current scheduler state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dispose deregisters every listener and observer and inerts the scheduler.
// A frame already in flight becomes a no-op. Idempotent.
func (s *Scheduler) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	s.state = StateIdle
	disconnects := s.disconnects
	s.disconnects = nil
	s.mu.Unlock()

	for _, disconnect := range disconnects {
		disconnect()
	}
	s.logger.Debug("scheduler disposed", "observed_anchors", len(s.observed))
}
