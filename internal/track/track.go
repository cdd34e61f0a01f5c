// Package track records which reference ids have been cited at least once
// in the live document.
//
// The cited-id set only grows within a session: a citation whose anchor is
// later removed from the document stays in the set ("once cited, always in
// the bibliography"). The set's canonical key is the sorted id join, which
// makes engine caching insensitive to citation arrival order.
package track

import (
	"sort"
	"strings"
	"sync"
)

// Tracker is the cited-id set. The zero value is not usable; construct with
// New. Safe for concurrent use.
type Tracker struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

// New creates an empty tracker.
func New() *Tracker {
	return &Tracker{ids: make(map[string]struct{})}
}

// Record adds ids to the cited set. Idempotent: recording an id twice, in
// one cluster or across clusters, is a no-op the second time. Ids absent
// from the reference store are accepted here; the style engine surfaces the
// lookup failure at render time.
func (t *Tracker) Record(ids ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, id := range ids {
		t.ids[id] = struct{}{}
	}
}

// Key returns the canonical cache key: cited ids sorted lexicographically
// and joined. Citing A-then-B and B-then-A produce the same key, so both
// orders reuse the same cached engine.
func (t *Tracker) Key() string {
	return strings.Join(t.IDs(), ",")
}

// IDs returns the cited ids sorted lexicographically.
func (t *Tracker) IDs() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.ids))
	for id := range t.ids {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Empty reports whether nothing has been cited yet.
func (t *Tracker) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids) == 0
}
