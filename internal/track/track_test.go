package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTracker_Empty(t *testing.T) {
	tr := New()
	assert.True(t, tr.Empty())
	assert.Equal(t, "", tr.Key())

	tr.Record("a")
	assert.False(t, tr.Empty())
}

func TestTracker_RecordIdempotent(t *testing.T) {
	tr := New()

	// Same id twice in one call (one cluster citing it twice).
	tr.Record("smith2020", "smith2020")
	// Same id again from a separate cluster.
	tr.Record("smith2020")

	assert.Equal(t, []string{"smith2020"}, tr.IDs())
}

func TestTracker_KeySorted(t *testing.T) {
	tr := New()
	tr.Record("b", "a")
	tr.Record("c")

	assert.Equal(t, "a,b,c", tr.Key())
}

func TestTracker_KeyOrderInsensitive(t *testing.T) {
	first := New()
	first.Record("B", "A")
	first.Record("C")

	second := New()
	second.Record("A")
	second.Record("B")
	second.Record("C")

	// Key depends only on the final set, not arrival order.
	assert.Equal(t, second.Key(), first.Key())
}

func TestTracker_AcceptsUnknownIDs(t *testing.T) {
	tr := New()
	// The tracker does not validate against the reference store; the engine
	// surfaces unknown ids at render time.
	tr.Record("no-such-reference")
	assert.Equal(t, []string{"no-such-reference"}, tr.IDs())
}
