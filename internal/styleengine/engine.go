// Package styleengine defines the opaque style-processor collaborator the
// citation core renders through, plus a built-in processor (SimpleEngine)
// that interprets CUE style definitions.
//
// An Engine instance is bound to a fixed (style, locale, item scope) triple.
// It is expensive to construct by contract; callers cache instances and
// rebuild only when the scoping key changes (see the enginecache package).
package styleengine

import (
	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/refstore"
)

// SystemCallbacks is how an engine reaches back into the session for data.
// Mirrors the retrieve-item / retrieve-locale shape of CSL processors.
type SystemCallbacks interface {
	// RetrieveItem resolves a reference id to its entry. A miss is a lookup
	// failure the engine surfaces at render time.
	RetrieveItem(id string) (refstore.Entry, bool)

	// RetrieveLocale resolves a locale name to its raw definition text.
	RetrieveLocale(name string) (string, bool)
}

// ClusterUpdate is one re-rendered inline citation produced by cross-cluster
// reprocessing.
type ClusterUpdate struct {
	ClusterID string
	HTML      string
}

// Bibliography is the structured result of MakeBibliography: a start/end
// wrapper, per-entry markup aligned with per-entry ids, and layout metadata.
type Bibliography struct {
	Start         string   // opening wrapper markup
	End           string   // closing wrapper markup
	EntryIDs      []string // reference id per entry, same order as Entries
	Entries       []string // per-entry markup
	LineSpacing   float64
	HangingIndent bool
}

// Engine is the opaque style processor.
//
// Implementations need not be safe for concurrent use; the session
// serializes all engine access.
type Engine interface {
	// UpdateItems sets the engine's cited item scope, in the given order.
	UpdateItems(ids []string) error

	// UpdateUncitedItems adds items that must appear in the bibliography
	// without being cited (show-all mode).
	UpdateUncitedItems(ids []string) error

	// PreviewCluster renders a cluster in isolation: a single-cluster
	// approximation that may differ from the final cross-referenced form.
	PreviewCluster(c *cluster.Cluster) (string, error)

	// ProcessCluster registers a cluster with the engine and returns updated
	// markup for every cluster affected by it, this one included.
	ProcessCluster(c *cluster.Cluster) ([]ClusterUpdate, error)

	// MakeBibliography renders the full bibliography for the current scope.
	MakeBibliography() (*Bibliography, error)
}

// Factory constructs engine instances. The style definition and locale name
// are fixed per instance; item scope is set afterwards via UpdateItems.
type Factory interface {
	New(sys SystemCallbacks, styleDefinition, localeName string) (Engine, error)
}
