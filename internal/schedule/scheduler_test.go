package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/testutil"
)

func newScheduler(frame Frame, runs *int) *Scheduler {
	return New(frame, func() { *runs++ }, testutil.SilentLogger())
}

func TestTrigger_CoalescesIntoOneRun(t *testing.T) {
	frame := testutil.NewManualFrame()
	runs := 0
	s := newScheduler(frame, &runs)

	s.Trigger()
	s.Trigger()
	s.Trigger()

	assert.Equal(t, StatePending, s.State())
	assert.Equal(t, 1, frame.Pending(), "pending triggers share one frame request")

	frame.Fire()
	assert.Equal(t, 1, runs)
	assert.Equal(t, StateIdle, s.State())

	// A fresh trigger after the run schedules a new frame.
	s.Trigger()
	frame.Fire()
	assert.Equal(t, 2, runs)
}

func TestTrigger_DuringRunSchedulesNextFrame(t *testing.T) {
	frame := testutil.NewManualFrame()
	runs := 0
	var s *Scheduler
	s = New(frame, func() {
		runs++
		if runs == 1 {
			// A render that itself causes change (first anchor write) must
			// schedule a follow-up frame, not run inline.
			s.Trigger()
		}
	}, testutil.SilentLogger())

	s.Trigger()
	assert.Equal(t, 1, frame.Fire())
	assert.Equal(t, 1, runs)
	assert.Equal(t, StatePending, s.State())

	assert.Equal(t, 1, frame.Fire())
	assert.Equal(t, 2, runs)
	assert.Equal(t, StateIdle, s.State())
}

func TestBind_EventAndInsertionTriggers(t *testing.T) {
	frame := testutil.NewManualFrame()
	runs := 0
	s := newScheduler(frame, &runs)
	doc := document.NewMemDocument()

	pred := func(n document.Node) bool {
		v, _ := n.Attr("class")
		return v == "anchor"
	}
	s.Bind(doc, "change", pred)

	doc.DispatchEvent("change", nil)
	assert.Equal(t, StatePending, s.State())
	frame.Fire()
	require.Equal(t, 1, runs)

	// Matching insertion triggers and brings the node under observation.
	n := doc.CreateNode("span", "anchor", nil)
	frame.Fire()
	require.Equal(t, 2, runs)

	n.SetHTML("updated")
	frame.Fire()
	require.Equal(t, 3, runs)

	// Non-matching insertions are ignored.
	doc.CreateNode("span", "other", nil)
	assert.Equal(t, StateIdle, s.State())
}

func TestObserve_AtMostOncePerNode(t *testing.T) {
	frame := testutil.NewManualFrame()
	runs := 0
	s := newScheduler(frame, &runs)
	doc := document.NewMemDocument()
	n := doc.CreateNode("span", "anchor", nil)

	s.Observe(doc, n)
	s.Observe(doc, n)
	s.Observe(doc, n)

	n.SetHTML("x")
	assert.Equal(t, 1, frame.Pending(), "duplicate observation would double-trigger")
	frame.Fire()
	assert.Equal(t, 1, runs)
}

func TestDispose_InertsEverything(t *testing.T) {
	frame := testutil.NewManualFrame()
	runs := 0
	s := newScheduler(frame, &runs)
	doc := document.NewMemDocument()
	s.Bind(doc, "change", func(document.Node) bool { return true })

	n := doc.CreateNode("span", "anchor", nil)
	s.Observe(doc, n)
	s.Trigger()

	s.Dispose()
	assert.Equal(t, StateIdle, s.State(), "dispose while pending resets the state")

	// The in-flight frame becomes a no-op.
	frame.Fire()
	assert.Equal(t, 0, runs)

	// Former trigger sources are disconnected.
	doc.DispatchEvent("change", nil)
	n.SetHTML("x")
	s.Trigger()
	assert.Equal(t, 0, frame.Pending())
	assert.Equal(t, StateIdle, s.State())

	// Idempotent; late Bind/Observe on a disposed scheduler stay inert.
	s.Dispose()
	s.Bind(doc, "change", func(document.Node) bool { return true })
	doc.DispatchEvent("change", nil)
	assert.Equal(t, 0, frame.Pending())
}

func TestTimerFrame(t *testing.T) {
	frame := TimerFrame{Delay: time.Millisecond}

	done := make(chan struct{})
	frame.Request(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("frame callback never fired")
	}
}
