package bib

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/enginecache"
	"github.com/roach88/citekit/internal/refstore"
	"github.com/roach88/citekit/internal/styleengine"
	"github.com/roach88/citekit/internal/testutil"
	"github.com/roach88/citekit/internal/track"
)

type fixture struct {
	doc      *document.MemDocument
	store    *refstore.Store
	tracker  *track.Tracker
	registry *cluster.Registry
	factory  *testutil.ScriptedFactory
	engines  *enginecache.Cache
	renderer *Renderer
}

func newFixture(refIDs ...string) *fixture {
	entries := make(map[string]refstore.Entry, len(refIDs))
	for _, id := range refIDs {
		entries[id] = refstore.Entry{Title: "Title " + id}
	}

	doc := document.NewMemDocument()
	tracker := track.New()
	registry := cluster.NewRegistry(cluster.Config{
		Document:  doc,
		Tracker:   tracker,
		SessionID: "sess",
		EventName: "citekit:citation-change:sess",
		NewID:     testutil.NewSequentialIDs("c").Next,
		Logger:    testutil.SilentLogger(),
	})
	factory := &testutil.ScriptedFactory{}
	engines := enginecache.New(enginecache.Config{
		Factory:    factory,
		StyleDef:   "unused",
		LocaleName: "en-US",
		NewID:      testutil.NewSequentialIDs("eng").Next,
		Logger:     testutil.SilentLogger(),
	})
	store := refstore.New(entries)

	return &fixture{
		doc:      doc,
		store:    store,
		tracker:  tracker,
		registry: registry,
		factory:  factory,
		engines:  engines,
		renderer: New(store, tracker, registry, engines, "sess", testutil.SilentLogger()),
	}
}

// cite registers one single-item cluster through the registry using a fixed
// preview, the way the session facade does.
func (f *fixture) cite(t *testing.T, id string) *cluster.Cluster {
	t.Helper()
	c, _, err := f.registry.CreateCluster(
		[]cluster.CitationItem{{ID: id}},
		cluster.Properties{},
		func(c *cluster.Cluster) (string, error) { return "[preview " + id + "]", nil },
		"eng-0",
	)
	require.NoError(t, err)
	return c
}

func parse(t *testing.T, markup string) *goquery.Document {
	t.Helper()
	d, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	require.NoError(t, err)
	return d
}

func TestRender_NoReferences(t *testing.T) {
	f := newFixture()
	assert.Equal(t, MarkupNoReferences, f.renderer.Render(Options{}))

	// The sentinel wins over every mode flag.
	assert.Equal(t, MarkupNoReferences, f.renderer.Render(Options{ShowAll: true}))
	assert.Equal(t, MarkupNoReferences, f.renderer.Render(Options{ShowNone: true}))
}

func TestRender_ShowNone(t *testing.T) {
	f := newFixture("a")
	f.cite(t, "a")
	assert.Equal(t, "", f.renderer.Render(Options{ShowNone: true}))
}

func TestRender_NoCitationsSkipsEngine(t *testing.T) {
	f := newFixture("a", "b")
	// A failing factory proves no engine is consulted for the sentinel.
	f.factory.Err = errors.New("must not be called")

	assert.Equal(t, MarkupNoCitations, f.renderer.Render(Options{}))
	assert.Equal(t, 0, f.factory.Built)
}

func TestRender_CitedMode(t *testing.T) {
	f := newFixture("a", "b", "c")
	c1 := f.cite(t, "b")
	c2 := f.cite(t, "a")

	markup := f.renderer.Render(Options{Anchors: true})

	// Engine scoped to the cited ids only, in canonical sorted order.
	require.Len(t, f.factory.Engines, 1)
	eng := f.factory.Engines[0]
	assert.Equal(t, []string{"a", "b"}, eng.Scope)
	assert.Empty(t, eng.Uncited)

	// Every cluster reprocessed, in registration order.
	assert.Equal(t, []string{c1.ID, c2.ID}, eng.Processed)

	// Anchors carry the authoritative markup, replacing the preview.
	a1, ok := f.registry.Anchor(c1.ID)
	require.True(t, ok)
	assert.Equal(t, "[processed "+c1.ID+"]", a1.HTML())

	doc := parse(t, markup)
	bib := doc.Find("div.csl-bibliography")
	require.Equal(t, 1, bib.Length())
	assert.Equal(t, "eng-1", bib.AttrOr("data-csl-bib", ""))
	assert.Equal(t, "sess", bib.AttrOr("data-csl-session", ""))

	// One entry per cited id, each anchored for in-document links.
	entries := bib.Find(".csl-entry")
	require.Equal(t, 2, entries.Length())
	assert.Equal(t, "csl-entry-a-sess", entries.Eq(0).AttrOr("id", ""))
	assert.Equal(t, "csl-entry-b-sess", entries.Eq(1).AttrOr("id", ""))

	// The style block is scoped to the same engine instance.
	assert.Contains(t, markup, `<style data-csl-style="eng-1">`)
	assert.Contains(t, markup, `[data-csl-bib="eng-1"] .csl-entry { line-height: 1; }`)
}

func TestRender_WithoutAnchorsEntriesKeepTheirMarkup(t *testing.T) {
	f := newFixture("a")
	f.cite(t, "a")

	markup := f.renderer.Render(Options{})
	assert.NotContains(t, markup, "csl-entry-a-sess")
}

func TestRender_ShowAllSkipsReprocessing(t *testing.T) {
	f := newFixture("a", "b", "c")
	f.cite(t, "b")

	markup := f.renderer.Render(Options{ShowAll: true})

	require.Len(t, f.factory.Engines, 1)
	eng := f.factory.Engines[0]
	assert.Equal(t, []string{"b"}, eng.Scope)
	assert.Equal(t, []string{"a", "c"}, eng.Uncited)

	// Show-all renders the bibliography without touching clusters; inline
	// citations keep whatever the cited-mode pass last wrote.
	assert.Empty(t, eng.Processed)

	entries := parse(t, markup).Find(".csl-entry")
	assert.Equal(t, 3, entries.Length())
}

func TestRender_UnchangedAnchorNotRewritten(t *testing.T) {
	f := newFixture("a")
	c := f.cite(t, "a")

	anchor, ok := f.registry.Anchor(c.ID)
	require.True(t, ok)

	writes := 0
	f.doc.ObserveSubtree(anchor, func() { writes++ })

	f.renderer.Render(Options{})
	assert.Equal(t, 1, writes, "first pass replaces the preview")

	f.renderer.Render(Options{})
	assert.Equal(t, 1, writes, "identical markup must not touch the anchor")
}

func TestRender_EngineBuildFailureBanner(t *testing.T) {
	f := newFixture("a")
	f.cite(t, "a")
	f.factory.Err = errors.New("style corrupt")

	markup := f.renderer.Render(Options{})

	banner := parse(t, markup).Find("div.csl-bib-error")
	require.Equal(t, 1, banner.Length())
	assert.Equal(t, "sess", banner.AttrOr("data-csl-session", ""))
	assert.Contains(t, banner.Text(), "ENGINE_BUILD")
	assert.Contains(t, banner.Text(), "style corrupt")
}

func TestRender_ClusterProcessFailureBanner(t *testing.T) {
	f := newFixture("a")
	c := f.cite(t, "a")

	// Build the cited engine up front so the failure can be scripted on it.
	_, _, err := f.engines.Cited(f.tracker.Key(), f.tracker.IDs())
	require.NoError(t, err)
	f.factory.Engines[0].ProcessFn = func(*cluster.Cluster) ([]styleengine.ClusterUpdate, error) {
		return nil, errors.New("item vanished")
	}

	markup := f.renderer.Render(Options{})

	banner := parse(t, markup).Find("div.csl-bib-error")
	require.Equal(t, 1, banner.Length())
	assert.Contains(t, banner.Text(), "CLUSTER_PROCESS")
	assert.Contains(t, banner.Text(), c.ID)
}

func TestRender_AssemblyFailureBanner(t *testing.T) {
	f := newFixture("a")
	f.cite(t, "a")

	_, _, err := f.engines.Cited(f.tracker.Key(), f.tracker.IDs())
	require.NoError(t, err)
	f.factory.Engines[0].BibFn = func() (*styleengine.Bibliography, error) {
		return nil, errors.New("layout failed")
	}

	markup := f.renderer.Render(Options{})
	assert.Contains(t, markup, "csl-bib-error")
	assert.Contains(t, markup, "ASSEMBLY")
}

func TestRender_HangingIndentAndSpacing(t *testing.T) {
	f := newFixture("a")
	f.cite(t, "a")

	_, _, err := f.engines.Cited(f.tracker.Key(), f.tracker.IDs())
	require.NoError(t, err)
	f.factory.Engines[0].BibFn = func() (*styleengine.Bibliography, error) {
		return &styleengine.Bibliography{
			Start:         `<div class="csl-bib-body">`,
			End:           `</div>`,
			EntryIDs:      []string{"a"},
			Entries:       []string{`<div class="csl-entry">a</div>`},
			LineSpacing:   2,
			HangingIndent: true,
		}, nil
	}

	markup := f.renderer.Render(Options{})
	assert.Contains(t, markup, "line-height: 2;")
	assert.Contains(t, markup, "padding-left: 1.5em; text-indent: -1.5em;")
}

func TestInjectAnchor(t *testing.T) {
	got := injectAnchor(`<div class="csl-entry">x</div>`, "csl-entry-x-sess")
	assert.Equal(t, `<div class="csl-entry" id="csl-entry-x-sess">x</div>`, got)

	// Entries without markup are passed through untouched.
	assert.Equal(t, "plain", injectAnchor("plain", "id"))
}

func TestRenderError_Formatting(t *testing.T) {
	inner := errors.New("boom")
	err := &RenderError{Code: ErrCodeClusterProcess, ClusterID: "c-1", Err: inner}

	assert.Equal(t, "CLUSTER_PROCESS: boom (cluster=c-1)", err.Error())
	assert.True(t, IsRenderError(fmt.Errorf("wrapped: %w", err)))
	assert.ErrorIs(t, err, inner)
}
