package citekit

import (
	"sync"

	"github.com/roach88/citekit/internal/bib"
	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/schedule"
)

// BibliographyOptions selects what a bibliography shows.
type BibliographyOptions struct {
	// ShowAll lists every known reference, cited or not.
	ShowAll bool

	// ShowNone keeps the bibliography live but renders nothing until a
	// later render without it.
	ShowNone bool
}

// Bibliography is a live bibliography bound to one container node. It
// renders once on creation and re-renders, debounced to one pass per frame,
// whenever citation activity or anchor mutation is observed. Dispose stops
// all updates.
type Bibliography struct {
	session   *Session
	node      Node
	renderer  *bib.Renderer
	scheduler *schedule.Scheduler
	opts      bib.Options

	mu       sync.Mutex
	last     string
	disposed bool
}

// Bibliography creates a live bibliography in a fresh container node.
// On a disposed session the returned bibliography is inert: its container
// stays empty and nothing is ever observed.
func (s *Session) Bibliography(opts BibliographyOptions) *Bibliography {
	b := &Bibliography{
		session: s,
		node: s.doc.CreateNode("div", "csl-bibliography-host", map[string]string{
			cluster.SessionAttr: s.id,
		}),
		renderer: bib.New(s.store, s.tracker, s.registry, s.engines, s.id, s.logger),
		opts: bib.Options{
			ShowAll:  opts.ShowAll,
			ShowNone: opts.ShowNone,
			Anchors:  s.anchors,
		},
	}
	b.scheduler = schedule.New(s.frame, b.render, s.logger)

	s.mu.Lock()
	if s.disposed {
		b.disposed = true
		s.mu.Unlock()
		b.scheduler.Dispose()
		return b
	}
	s.bibs = append(s.bibs, b)
	s.mu.Unlock()

	b.scheduler.Bind(s.doc, s.eventName, s.anchorPred)
	b.render()
	return b
}

// Node returns the container the bibliography renders into.
func (b *Bibliography) Node() Node { return b.node }

// Markup returns the last applied bibliography markup.
func (b *Bibliography) Markup() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last
}

// Dispose deregisters the bibliography's listener and observers. The
// container keeps its last markup. Idempotent.
func (b *Bibliography) Dispose() {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	b.disposed = true
	b.mu.Unlock()

	b.scheduler.Dispose()
}

// render is the scheduler-driven render pass. Byte-identical output leaves
// the container untouched, which is what stops anchor-mutation observation
// from feeding back into an endless render loop.
func (b *Bibliography) render() {
	// The render pass drives the shared engine instances; engineMu keeps
	// concurrent frame callbacks (and citation previews) off them.
	b.session.engineMu.Lock()
	markup := b.renderer.Render(b.opts)
	b.session.engineMu.Unlock()

	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return
	}
	changed := markup != b.last
	if changed {
		b.last = markup
	}
	b.mu.Unlock()

	if changed {
		b.node.SetHTML(markup)
	}

	// Anchors created before this bibliography existed (or since the last
	// pass) come under observation here. Observe is per-node idempotent.
	for _, c := range b.session.registry.Clusters() {
		if anchor, ok := b.session.registry.Anchor(c.ID); ok {
			b.scheduler.Observe(b.session.doc, anchor)
		}
	}
}
