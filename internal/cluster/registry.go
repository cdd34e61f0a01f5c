package cluster

import (
	"fmt"
	"html"
	"log/slog"
	"sync"

	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/track"
)

// AnchorClass is the class every citation anchor carries. Hosts and the
// scheduler's insertion predicate both key on it.
const AnchorClass = "csl-citation-cluster"

// SessionAttr is the data attribute stamping a node with its owning session.
// It isolates observers and selectors when several sessions share one page.
const SessionAttr = "data-csl-session"

// ClusterAttr carries the cluster id on its anchor.
const ClusterAttr = "data-csl-cluster"

// LinkClass is the class on the link wrapping a citation item when citation
// linking is enabled. The session's click handler keys on it.
const LinkClass = "csl-citation-link"

// EntryAnchorID returns the in-document anchor id for a bibliography entry,
// scoped by session so co-resident sessions never collide.
func EntryAnchorID(refID, sessionID string) string {
	return "csl-entry-" + refID + "-" + sessionID
}

// PreviewFunc renders a cluster in isolation, before any sibling clusters
// are known. The authoritative render happens later, during bibliography
// reprocessing.
type PreviewFunc func(*Cluster) (string, error)

// Signal is the citation-changed event detail. EngineID identifies the
// engine instance that produced the preview.
type Signal struct {
	SessionID string
	EngineID  string
	ClusterID string
}

// Registry creates citation clusters and owns the cluster -> anchor arena.
//
// Registering a cluster records its cited ids with the tracker and raises
// the per-session citation-changed document event, at most once per
// CreateCluster call. A failed preview registers nothing: the anchor shows
// an inline error marker and tracker, arena, and event state are untouched.
type Registry struct {
	doc       document.Document
	tracker   *track.Tracker
	sessionID string
	eventName string
	linkCites bool
	newID     func() string
	logger    *slog.Logger

	mu       sync.Mutex
	clusters []*Cluster               // registration order
	anchors  map[string]document.Node // cluster id -> anchor
}

// Config carries registry construction parameters.
type Config struct {
	Document      document.Document
	Tracker       *track.Tracker
	SessionID     string
	EventName     string
	LinkCitations bool
	NewID         func() string
	Logger        *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		doc:       cfg.Document,
		tracker:   cfg.Tracker,
		sessionID: cfg.SessionID,
		eventName: cfg.EventName,
		linkCites: cfg.LinkCitations,
		newID:     cfg.NewID,
		logger:    cfg.Logger,
		anchors:   make(map[string]document.Node),
	}
}

// CreateCluster builds a cluster from the given items, renders its preview
// into a fresh anchor, and registers it.
//
// NoteIndex is forced to zero unconditionally: note-based styles are
// unsupported. When citation linking is enabled each item's prefix/suffix is
// augmented with link wrapper markup targeting the item's bibliography entry
// anchor.
//
// CreateCluster never fails outward. On preview failure the anchor renders a
// visible inline error marker, the returned error describes the failure for
// logging, and no registry, tracker, or event state changes.
func (r *Registry) CreateCluster(items []CitationItem, props Properties, preview PreviewFunc, engineID string) (*Cluster, document.Node, error) {
	props.NoteIndex = 0

	wrapped := make([]CitationItem, len(items))
	copy(wrapped, items)
	if r.linkCites {
		for i := range wrapped {
			target := EntryAnchorID(wrapped[i].ID, r.sessionID)
			wrapped[i].Prefix = wrapped[i].Prefix +
				`<a class="` + LinkClass + `" href="#` + target + `">`
			wrapped[i].Suffix = `</a>` + wrapped[i].Suffix
		}
	}

	c := &Cluster{
		ID:         r.newID(),
		Items:      wrapped,
		Properties: props,
	}

	anchor := r.doc.CreateNode("span", AnchorClass, map[string]string{
		SessionAttr: r.sessionID,
		ClusterAttr: c.ID,
	})

	markup, err := preview(c)
	if err != nil {
		anchor.SetHTML(errorMarker(err))
		r.logger.Warn("citation preview failed",
			"cluster_id", c.ID,
			"session_id", r.sessionID,
			"error", err,
		)
		return c, anchor, fmt.Errorf("preview cluster %s: %w", c.ID, err)
	}
	anchor.SetHTML(markup)

	r.mu.Lock()
	r.clusters = append(r.clusters, c)
	r.anchors[c.ID] = anchor
	r.mu.Unlock()

	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	r.tracker.Record(ids...)

	r.logger.Debug("cluster registered",
		"cluster_id", c.ID,
		"session_id", r.sessionID,
		"item_count", len(ids),
	)

	r.doc.DispatchEvent(r.eventName, Signal{
		SessionID: r.sessionID,
		EngineID:  engineID,
		ClusterID: c.ID,
	})

	return c, anchor, nil
}

// Clusters returns registered clusters in registration order. The slice is
// a copy; the clusters themselves are shared and immutable.
func (r *Registry) Clusters() []*Cluster {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Cluster, len(r.clusters))
	copy(out, r.clusters)
	return out
}

// Anchor resolves a cluster id to its anchor node.
func (r *Registry) Anchor(clusterID string) (document.Node, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.anchors[clusterID]
	return n, ok
}

// Len returns the number of registered clusters.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clusters)
}

// errorMarker renders the inline marker shown when a citation preview
// fails.
func errorMarker(err error) string {
	return `<span class="csl-citation-error" title="` +
		html.EscapeString(err.Error()) + `">[citation error]</span>`
}
