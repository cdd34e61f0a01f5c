// Package document abstracts the mutable rendering surface the citation
// core writes into.
//
// The core never talks to a real DOM. It depends on three capabilities:
//
//   - node handles: create an element, replace its inner markup, read and
//     write attributes, remove it
//   - document-level events: dispatch and listen by name (the per-session
//     citation-changed signal travels this way)
//   - change observation: subscribe to subtree mutation of a known node, and
//     to insertion of new nodes matching a predicate
//
// A browser-backed host implements Document over its real document; the
// in-memory implementation in this package (MemDocument) backs the CLI and
// every test. Observer and listener callbacks are always invoked without any
// document lock held, so callbacks are free to call back into the document.
package document

// Node is a live element handle. A node belongs to exactly one Document and
// stays valid after Remove (reads still work; it is just detached).
type Node interface {
	// ID is a document-unique, stable identifier for the node. Registries
	// key observation state by this value.
	ID() string

	// Tag returns the element tag the node was created with.
	Tag() string

	// SetHTML replaces the node's inner markup. Subtree observers fire on
	// every call, including writes of identical content - deduplication is
	// the writer's job, not the document's.
	SetHTML(html string)

	// HTML returns the node's current inner markup.
	HTML() string

	// SetAttr sets an attribute on the node.
	SetAttr(key, value string)

	// Attr reads an attribute. The second return is false when unset.
	Attr(key string) (string, bool)

	// Remove detaches the node from the document.
	Remove()

	// Attached reports whether the node is still part of the document.
	Attached() bool
}

// Document is the change-notifier capability the citation core depends on.
//
// All methods are safe for concurrent use. The remove/disconnect functions
// returned by the subscription methods are idempotent.
type Document interface {
	// CreateNode appends a new element to the document body and returns its
	// handle. Attributes are set before insertion observers run, so
	// predicates can match on them. Insertion observers whose predicate
	// matches the new node fire after the node is attached.
	CreateNode(tag, class string, attrs map[string]string) Node

	// DispatchEvent delivers a named event to all listeners registered for
	// that name, synchronously, in registration order.
	DispatchEvent(name string, detail any)

	// AddEventListener subscribes to a named event.
	AddEventListener(name string, fn func(detail any)) (remove func())

	// ObserveSubtree subscribes to mutations of a node's content.
	ObserveSubtree(n Node, fn func()) (disconnect func())

	// ObserveInsertions subscribes to insertion of new nodes matching pred.
	ObserveInsertions(pred func(Node) bool, fn func(Node)) (disconnect func())
}
