// Package bib regenerates bibliography markup from the cache-selected
// engine and keeps inline citations consistent with it.
//
// A render pass is a bounded synchronous sweep: select (or rebuild) the
// engine, reprocess every registered cluster through it in registration
// order, overwrite changed anchors, then assemble the bibliography markup.
// Cross-cluster reprocessing exists because any single cluster's
// numbering/labels can depend on which sibling clusters exist and in what
// order; an isolated preview is only an approximation until this pass runs.
package bib

import (
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/enginecache"
	"github.com/roach88/citekit/internal/refstore"
	"github.com/roach88/citekit/internal/styleengine"
	"github.com/roach88/citekit/internal/track"
)

// Fixed sentinel markup. Tests and hosts match on these exactly.
const (
	// MarkupNoReferences renders when the reference set is empty.
	MarkupNoReferences = `<div class="csl-bib-empty">No references loaded.</div>`

	// MarkupNoCitations renders in cited-only mode before anything is cited.
	// Nothing has been processed, so no engine is consulted.
	MarkupNoCitations = `<div class="csl-bib-empty">No sources cited yet.</div>`
)

// Options selects the render mode.
type Options struct {
	// ShowAll scopes the bibliography to every known reference instead of
	// only cited ones.
	ShowAll bool

	// ShowNone suppresses output entirely: the bibliography stays alive but
	// renders empty markup until re-rendered without it.
	ShowNone bool

	// Anchors injects an id into each entry's opening tag so citation links
	// and hosts can target entries in the document.
	Anchors bool
}

// Renderer produces bibliography markup for one session.
type Renderer struct {
	store     *refstore.Store
	tracker   *track.Tracker
	registry  *cluster.Registry
	engines   *enginecache.Cache
	sessionID string
	logger    *slog.Logger
}

// New creates a renderer over the session's shared state.
func New(store *refstore.Store, tracker *track.Tracker, registry *cluster.Registry, engines *enginecache.Cache, sessionID string, logger *slog.Logger) *Renderer {
	return &Renderer{
		store:     store,
		tracker:   tracker,
		registry:  registry,
		engines:   engines,
		sessionID: sessionID,
		logger:    logger,
	}
}

// Render produces the bibliography markup for the given options. It never
// fails outward: every error becomes a visible banner replacing the
// bibliography content. Callers compare the result against the last applied
// markup and skip the container write when identical.
func (r *Renderer) Render(opts Options) string {
	if r.store.Len() == 0 {
		return MarkupNoReferences
	}
	if opts.ShowNone {
		return ""
	}

	markup, err := r.render(opts)
	if err != nil {
		r.logger.Error("bibliography render failed",
			"session_id", r.sessionID,
			"show_all", opts.ShowAll,
			"error", err,
		)
		return r.banner(err)
	}
	return markup
}

func (r *Renderer) render(opts Options) (string, error) {
	var (
		eng styleengine.Engine
		uid string
		err error
	)
	if opts.ShowAll {
		eng, uid, err = r.engines.ShowAll(r.tracker.IDs(), r.store.IDs())
	} else {
		if r.tracker.Empty() {
			// Nothing to process; the engine is deliberately not consulted.
			return MarkupNoCitations, nil
		}
		eng, uid, err = r.engines.Cited(r.tracker.Key(), r.tracker.IDs())
	}
	if err != nil {
		return "", &RenderError{Code: ErrCodeEngineBuild, Err: err}
	}

	if !opts.ShowAll && r.registry.Len() > 0 {
		if err := r.reprocess(eng); err != nil {
			return "", err
		}
	}

	result, err := eng.MakeBibliography()
	if err != nil {
		return "", &RenderError{Code: ErrCodeAssembly, Err: err}
	}
	return r.assemble(uid, result, opts.Anchors), nil
}

// reprocess runs every registered cluster through the engine in
// registration order, then overwrites each affected anchor whose markup
// actually changed. Unchanged anchors are left alone so mutation observers
// don't feed back into another render.
func (r *Renderer) reprocess(eng styleengine.Engine) error {
	clusters := r.registry.Clusters()

	updates := make(map[string]string, len(clusters))
	for _, c := range clusters {
		batch, err := eng.ProcessCluster(c)
		if err != nil {
			return &RenderError{Code: ErrCodeClusterProcess, ClusterID: c.ID, Err: err}
		}
		for _, u := range batch {
			updates[u.ClusterID] = u.HTML
		}
	}

	for _, c := range clusters {
		markup, ok := updates[c.ID]
		if !ok {
			continue
		}
		anchor, ok := r.registry.Anchor(c.ID)
		if !ok {
			continue
		}
		if anchor.HTML() != markup {
			anchor.SetHTML(markup)
		}
	}
	return nil
}

// assemble builds the final markup: a style block scoped by the engine
// instance id, then the bibliography container tagged with the same id and
// the session id, holding the engine's wrapper and anchored entries.
func (r *Renderer) assemble(engineID string, result *styleengine.Bibliography, anchors bool) string {
	var b strings.Builder

	b.WriteString(r.styleBlock(engineID, result))

	fmt.Fprintf(&b, `<div class="csl-bibliography" data-csl-bib=%q %s=%q>`,
		engineID, cluster.SessionAttr, r.sessionID)
	b.WriteString(result.Start)
	for i, entry := range result.Entries {
		if anchors && i < len(result.EntryIDs) {
			entry = injectAnchor(entry, cluster.EntryAnchorID(result.EntryIDs[i], r.sessionID))
		}
		b.WriteString(entry)
	}
	b.WriteString(result.End)
	b.WriteString(`</div>`)
	return b.String()
}

// styleBlock emits layout metadata as CSS scoped to this engine instance.
// Scoping by unique id prevents style leakage between co-resident sessions.
func (r *Renderer) styleBlock(engineID string, result *styleengine.Bibliography) string {
	spacing := result.LineSpacing
	if spacing <= 0 {
		spacing = 1
	}
	indent := ""
	if result.HangingIndent {
		indent = " padding-left: 1.5em; text-indent: -1.5em;"
	}
	return fmt.Sprintf(
		`<style data-csl-style=%q>[data-csl-bib=%q] .csl-entry { line-height: %g;%s }</style>`,
		engineID, engineID, spacing, indent)
}

// banner renders the in-place failure banner. Previous bibliography content
// is not preserved: the banner must reflect the current error state.
func (r *Renderer) banner(err error) string {
	return fmt.Sprintf(`<div class="csl-bib-error" %s=%q>Bibliography unavailable: %s</div>`,
		cluster.SessionAttr, r.sessionID, html.EscapeString(err.Error()))
}

// injectAnchor inserts an id attribute into an entry's opening tag so
// in-document citation links can target it.
func injectAnchor(entry, anchorID string) string {
	i := strings.Index(entry, ">")
	if i < 0 {
		return entry
	}
	return entry[:i] + fmt.Sprintf(" id=%q", anchorID) + entry[i:]
}
