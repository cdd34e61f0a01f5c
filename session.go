// Package citekit turns citation activity in a document into a continuously
// regenerated bibliography.
//
// A Session is created over raw bibliographic input plus a style and locale.
// Citations are created through the session; each one renders an immediate
// single-cluster preview into a fresh anchor node. Bibliographies created
// through the session subscribe to citation activity and regenerate on a
// debounced frame cadence, reprocessing every citation cluster so
// cross-cluster dependent forms (numbering, disambiguation) converge on their
// authoritative markup.
//
// The document, importer, style engine, resource source, and frame cadence
// are all injectable; the defaults run the whole pipeline in memory with the
// built-in style processor and embedded style/locale resources.
package citekit

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/enginecache"
	"github.com/roach88/citekit/internal/refstore"
	"github.com/roach88/citekit/internal/schedule"
	"github.com/roach88/citekit/internal/styleengine"
	"github.com/roach88/citekit/internal/styles"
	"github.com/roach88/citekit/internal/track"
)

// Re-exported collaborator types, so hosts outside this module can implement
// the document and engine interfaces and consume reference data.
type (
	Document      = document.Document
	Node          = document.Node
	Entry         = refstore.Entry
	Author        = refstore.Author
	Importer      = refstore.Importer
	Engine        = styleengine.Engine
	EngineFactory = styleengine.Factory
	Frame         = schedule.Frame
	CitationItem  = cluster.CitationItem
	Signal        = cluster.Signal
)

// EventName returns the per-session citation-changed document event name.
func EventName(sessionID string) string {
	return "citekit:citation-change:" + sessionID
}

// Session is one document's citation context: a fixed reference set, a style
// and locale, and the live citation state. Safe for concurrent use.
type Session struct {
	id        string
	doc       document.Document
	store     *refstore.Store
	tracker   *track.Tracker
	registry  *cluster.Registry
	engines   *enginecache.Cache
	frame     schedule.Frame
	logger    *slog.Logger
	eventName string
	anchors   bool // inject entry anchor ids into bibliography markup

	// engineMu serializes style-engine access. Engine instances are not
	// safe for concurrent use, and every live bibliography renders on its
	// own frame goroutine.
	engineMu sync.Mutex

	mu          sync.Mutex
	bibs        []*Bibliography
	removeClick func()
	disposed    bool
}

// Create builds a session: fetches the style and locale resources, parses
// the raw references, and wires the citation state. This is the only
// blocking step; resource fetch honors ctx. Both resource and parse failures
// are fatal and return a SetupError naming what failed.
func Create(ctx context.Context, rawRefs []byte, opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	styleKey := styles.StyleResource(cfg.style)
	styleDef, err := cfg.resources.Get(ctx, styleKey)
	if err != nil {
		return nil, &SetupError{Resource: styleKey, Err: err}
	}
	localeKey := styles.LocaleResource(cfg.locale)
	localeText, err := cfg.resources.Get(ctx, localeKey)
	if err != nil {
		return nil, &SetupError{Resource: localeKey, Err: err}
	}

	store, err := refstore.Import(cfg.importer, rawRefs)
	if err != nil {
		return nil, &SetupError{Resource: "references", Err: err}
	}

	sessionID := cfg.newID()
	tracker := track.New()

	s := &Session{
		id:      sessionID,
		doc:     cfg.doc,
		store:   store,
		tracker: tracker,
		engines: enginecache.New(enginecache.Config{
			Factory: cfg.factory,
			System: &system{
				store:   store,
				locales: map[string]string{cfg.locale: localeText},
			},
			StyleDef:   styleDef,
			LocaleName: cfg.locale,
			NewID:      cfg.newID,
			Logger:     cfg.logger,
		}),
		frame:     cfg.frame,
		logger:    cfg.logger,
		eventName: EventName(sessionID),
		anchors:   cfg.linkCitations || cfg.linkBibliography,
	}
	s.registry = cluster.NewRegistry(cluster.Config{
		Document:      cfg.doc,
		Tracker:       tracker,
		SessionID:     sessionID,
		EventName:     s.eventName,
		LinkCitations: cfg.linkCitations,
		NewID:         cfg.newID,
		Logger:        cfg.logger,
	})

	if cfg.linkCitations {
		s.removeClick = cfg.doc.AddEventListener("click", s.handleClick)
	}

	cfg.logger.Info("session created",
		"session_id", sessionID,
		"style", cfg.style,
		"locale", cfg.locale,
		"reference_count", store.Len(),
	)
	return s, nil
}

// ID returns the session id stamped into anchors, bibliography containers,
// and the event name.
func (s *Session) ID() string { return s.id }

// Document returns the document the session renders into.
func (s *Session) Document() Document { return s.doc }

// Citation is the result of a cite call. Creation never fails outward: on
// preview failure the anchor shows an inline error marker, Err carries the
// cause, and the citation participates in nothing.
type Citation struct {
	// ID is the cluster id, also present on the anchor's data attribute.
	ID string

	// Anchor is the node carrying the rendered citation.
	Anchor Node

	// Err is the preview failure, if any.
	Err error
}

// Cite creates a parenthetical citation cluster for the given reference ids.
func (s *Session) Cite(ids ...string) *Citation {
	return s.cite(itemsFor(ids), cluster.Properties{})
}

// CiteComposite creates an author-in-text citation cluster, e.g.
// "Smith (2020)" instead of "(Smith, 2020)".
func (s *Session) CiteComposite(ids ...string) *Citation {
	return s.cite(itemsFor(ids), cluster.Properties{Mode: cluster.ModeComposite})
}

// CiteWithPrefix creates a parenthetical cluster with free text before the
// first item, e.g. "(see Smith, 2020)".
func (s *Session) CiteWithPrefix(prefix string, ids ...string) *Citation {
	items := itemsFor(ids)
	if len(items) > 0 {
		items[0].Prefix = prefix
	}
	return s.cite(items, cluster.Properties{})
}

func (s *Session) cite(items []cluster.CitationItem, props cluster.Properties) *Citation {
	eng, engineID, err := s.engines.Preview()
	var preview cluster.PreviewFunc
	if err != nil {
		preview = func(*cluster.Cluster) (string, error) { return "", err }
	} else {
		preview = func(c *cluster.Cluster) (string, error) {
			s.engineMu.Lock()
			defer s.engineMu.Unlock()
			return eng.PreviewCluster(c)
		}
	}

	c, anchor, cerr := s.registry.CreateCluster(items, props, preview, engineID)
	return &Citation{ID: c.ID, Anchor: anchor, Err: cerr}
}

func itemsFor(ids []string) []cluster.CitationItem {
	items := make([]cluster.CitationItem, len(ids))
	for i, id := range ids {
		items[i] = cluster.CitationItem{ID: id}
	}
	return items
}

// ReferenceList returns every known reference sorted by id. Display is the
// host's concern; this is the data payload only.
func (s *Session) ReferenceList() []Entry {
	return s.store.Entries()
}

// Dispose tears the session down: every live bibliography is disposed and
// the click listener removed. Citations created afterwards still render
// their previews but never produce bibliography updates. Idempotent.
func (s *Session) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	bibs := s.bibs
	s.bibs = nil
	removeClick := s.removeClick
	s.removeClick = nil
	s.mu.Unlock()

	for _, b := range bibs {
		b.Dispose()
	}
	if removeClick != nil {
		removeClick()
	}
	s.logger.Debug("session disposed", "session_id", s.id)
}

// anchorPred reports whether a node is one of this session's citation
// anchors. The scheduler's insertion observation keys on it.
func (s *Session) anchorPred(n document.Node) bool {
	class, _ := n.Attr("class")
	if class != cluster.AnchorClass {
		return false
	}
	sid, _ := n.Attr(cluster.SessionAttr)
	return sid == s.id
}

// handleClick resolves clicks on citation links to their bibliography entry
// anchors. The in-memory document has no viewport, so resolution is the
// whole job; a browser host scrolls to the target.
func (s *Session) handleClick(detail any) {
	n, ok := detail.(document.Node)
	if !ok {
		return
	}
	class, _ := n.Attr("class")
	if class != cluster.LinkClass {
		return
	}
	href, _ := n.Attr("href")
	target := strings.TrimPrefix(href, "#")
	if target == "" {
		return
	}
	s.logger.Debug("citation link activated", "session_id", s.id, "target", target)
}

// system adapts the session's store and fetched locale text to the engine's
// callback interface.
type system struct {
	store   *refstore.Store
	locales map[string]string
}

var _ styleengine.SystemCallbacks = (*system)(nil)

func (s *system) RetrieveItem(id string) (refstore.Entry, bool) {
	return s.store.Get(id)
}

func (s *system) RetrieveLocale(name string) (string, bool) {
	text, ok := s.locales[name]
	return text, ok
}
