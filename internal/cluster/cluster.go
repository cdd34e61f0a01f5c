// Package cluster owns citation clusters: one in-text citation occurrence,
// possibly citing several references together, bound to exactly one rendered
// anchor element for its lifetime.
//
// The registry is the explicit cluster -> anchor arena. Nothing hangs state
// off live document nodes; the association lives here, keyed by cluster id.
package cluster

// CitationItem describes one reference occurrence inside a cluster.
//
// Prefix and Suffix are augmented, never replaced, when citation linking is
// enabled: the link wrapper markup is appended to the caller's own prefix
// and prepended to the caller's own suffix.
type CitationItem struct {
	ID             string `json:"id"`
	Prefix         string `json:"prefix,omitempty"`
	Suffix         string `json:"suffix,omitempty"`
	Locator        string `json:"locator,omitempty"`
	Label          string `json:"label,omitempty"`
	SuppressAuthor bool   `json:"suppress-author,omitempty"`
}

// Mode selects how a cluster renders relative to the running text.
type Mode string

const (
	// ModeParenthetical is the default: the whole citation sits inside the
	// style's wrapping punctuation, e.g. "(Smith, 2020)".
	ModeParenthetical Mode = ""

	// ModeComposite renders the author as part of the sentence with only the
	// year parenthesized, e.g. "Smith (2020)".
	ModeComposite Mode = "composite"
)

// Properties holds cluster-level rendering properties. NoteIndex is fixed at
// zero for every cluster: note-based styles are unsupported.
type Properties struct {
	NoteIndex int  `json:"noteIndex"`
	Mode      Mode `json:"mode,omitempty"`
}

// Cluster is one citation occurrence. Immutable after creation.
type Cluster struct {
	ID         string         `json:"clusterId"`
	Items      []CitationItem `json:"citationItems"`
	Properties Properties     `json:"properties"`
}
