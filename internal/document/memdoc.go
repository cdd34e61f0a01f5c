package document

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// MemDocument is the in-memory Document implementation.
//
// It is the production document for the CLI (which renders into memory and
// serializes at the end) and the test double for everything else. Node ids
// are assigned sequentially ("node-1", "node-2", ...) so test output is
// deterministic.
//
// Thread-safety: all state is guarded by a single mutex. Callbacks are
// invoked after the lock is released, so a callback may create nodes,
// dispatch events, or disconnect itself without deadlocking.
type MemDocument struct {
	mu sync.Mutex

	nextNode int
	nextSub  int
	nodes    []*memNode

	listeners  map[string]map[int]func(detail any)
	subtree    map[string]map[int]func() // node id -> subscription id -> callback
	insertions map[int]insertionSub
}

type insertionSub struct {
	pred func(Node) bool
	fn   func(Node)
}

// NewMemDocument creates an empty in-memory document.
func NewMemDocument() *MemDocument {
	return &MemDocument{
		listeners:  make(map[string]map[int]func(detail any)),
		subtree:    make(map[string]map[int]func()),
		insertions: make(map[int]insertionSub),
	}
}

// CreateNode implements Document.
func (d *MemDocument) CreateNode(tag, class string, attrs map[string]string) Node {
	d.mu.Lock()
	d.nextNode++
	n := &memNode{
		doc:      d,
		id:       fmt.Sprintf("node-%d", d.nextNode),
		tag:      tag,
		attrs:    map[string]string{},
		attached: true,
	}
	if class != "" {
		n.attrs["class"] = class
	}
	for k, v := range attrs {
		n.attrs[k] = v
	}
	d.nodes = append(d.nodes, n)

	// Snapshot subscribers while locked. Predicates and callbacks read node
	// attributes (which take this lock), so both run after unlock.
	ids := make([]int, 0, len(d.insertions))
	for id := range d.insertions {
		ids = append(ids, id)
	}
	sort.Ints(ids) // registration order (ids are monotone)
	subs := make([]insertionSub, 0, len(ids))
	for _, id := range ids {
		subs = append(subs, d.insertions[id])
	}
	d.mu.Unlock()

	for _, sub := range subs {
		if sub.pred(n) {
			sub.fn(n)
		}
	}
	return n
}

// DispatchEvent implements Document.
func (d *MemDocument) DispatchEvent(name string, detail any) {
	d.mu.Lock()
	subs := d.listeners[name]
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids) // registration order (ids are monotone)
	fire := make([]func(detail any), 0, len(ids))
	for _, id := range ids {
		fire = append(fire, subs[id])
	}
	d.mu.Unlock()

	for _, fn := range fire {
		fn(detail)
	}
}

// AddEventListener implements Document.
func (d *MemDocument) AddEventListener(name string, fn func(detail any)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	id := d.nextSub
	if d.listeners[name] == nil {
		d.listeners[name] = make(map[int]func(detail any))
	}
	d.listeners[name][id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.listeners[name], id)
	}
}

// ObserveSubtree implements Document.
func (d *MemDocument) ObserveSubtree(n Node, fn func()) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	id := d.nextSub
	nodeID := n.ID()
	if d.subtree[nodeID] == nil {
		d.subtree[nodeID] = make(map[int]func())
	}
	d.subtree[nodeID][id] = fn

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subtree[nodeID], id)
	}
}

// ObserveInsertions implements Document.
func (d *MemDocument) ObserveInsertions(pred func(Node) bool, fn func(Node)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSub++
	id := d.nextSub
	d.insertions[id] = insertionSub{pred: pred, fn: fn}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.insertions, id)
	}
}

// Nodes returns all attached nodes in insertion order.
func (d *MemDocument) Nodes() []Node {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Node, 0, len(d.nodes))
	for _, n := range d.nodes {
		if n.attached {
			out = append(out, n)
		}
	}
	return out
}

// Render serializes the attached nodes to a single HTML fragment in
// insertion order. Used by the CLI to emit the final document.
func (d *MemDocument) Render() string {
	d.mu.Lock()
	defer d.mu.Unlock()

	var b strings.Builder
	for _, n := range d.nodes {
		if !n.attached {
			continue
		}
		b.WriteString(n.outerHTMLLocked())
		b.WriteString("\n")
	}
	return b.String()
}

// notifySubtree fires the subtree observers for a node. Called by memNode
// with the document lock NOT held.
func (d *MemDocument) notifySubtree(nodeID string) {
	d.mu.Lock()
	subs := d.subtree[nodeID]
	fire := make([]func(), 0, len(subs))
	ids := make([]int, 0, len(subs))
	for id := range subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		fire = append(fire, subs[id])
	}
	d.mu.Unlock()

	for _, fn := range fire {
		fn()
	}
}

// memNode is the MemDocument node handle.
type memNode struct {
	doc      *MemDocument
	id       string
	tag      string
	attrs    map[string]string
	html     string
	attached bool
}

func (n *memNode) ID() string  { return n.id }
func (n *memNode) Tag() string { return n.tag }

func (n *memNode) SetHTML(html string) {
	n.doc.mu.Lock()
	n.html = html
	n.doc.mu.Unlock()

	// Observers fire even when the content is unchanged; the renderer's
	// equality short-circuit is what breaks feedback loops.
	n.doc.notifySubtree(n.id)
}

func (n *memNode) HTML() string {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.html
}

func (n *memNode) SetAttr(key, value string) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.attrs[key] = value
}

func (n *memNode) Attr(key string) (string, bool) {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	v, ok := n.attrs[key]
	return v, ok
}

func (n *memNode) Remove() {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	n.attached = false
}

func (n *memNode) Attached() bool {
	n.doc.mu.Lock()
	defer n.doc.mu.Unlock()
	return n.attached
}

// outerHTMLLocked serializes the node. Caller holds the document lock.
func (n *memNode) outerHTMLLocked() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(n.tag)
	keys := make([]string, 0, len(n.attrs))
	for k := range n.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%q", k, n.attrs[k])
	}
	b.WriteString(">")
	b.WriteString(n.html)
	b.WriteString("</")
	b.WriteString(n.tag)
	b.WriteString(">")
	return b.String()
}
