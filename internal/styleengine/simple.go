package styleengine

import (
	"fmt"
	"html"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/collate"

	"github.com/roach88/citekit/internal/cluster"
	"github.com/roach88/citekit/internal/refstore"
)

// SimpleFactory builds SimpleEngine instances. It is the default factory;
// hosts with a full CSL processor substitute their own Factory at session
// creation.
type SimpleFactory struct{}

// New implements Factory.
func (SimpleFactory) New(sys SystemCallbacks, styleDefinition, localeName string) (Engine, error) {
	spec, err := ParseStyle(styleDefinition)
	if err != nil {
		return nil, err
	}

	raw, ok := sys.RetrieveLocale(localeName)
	if !ok {
		return nil, fmt.Errorf("locale %q not available", localeName)
	}
	loc, err := ParseLocale(localeName, raw)
	if err != nil {
		return nil, err
	}

	return &SimpleEngine{
		sys:      sys,
		spec:     spec,
		loc:      loc,
		collator: collate.New(loc.Tag, collate.IgnoreCase),
	}, nil
}

// SimpleEngine is a modest author-date / numeric style processor driven by
// a CUE style definition and YAML locale terms.
//
// It implements the full Engine contract: isolated previews, stateful
// cross-cluster processing with stable numbering, and structured
// bibliography output with layout metadata. It is not a CSL implementation;
// it exists so the pipeline can run end to end without an external
// processor.
type SimpleEngine struct {
	sys      SystemCallbacks
	spec     *StyleSpec
	loc      *Locale
	collator *collate.Collator

	scope    []string // cited scope in UpdateItems order
	uncited  []string
	clusters []*cluster.Cluster // processed clusters, first-seen order
}

// UpdateItems implements Engine.
func (e *SimpleEngine) UpdateItems(ids []string) error {
	e.scope = append([]string(nil), ids...)
	return nil
}

// UpdateUncitedItems implements Engine.
func (e *SimpleEngine) UpdateUncitedItems(ids []string) error {
	e.uncited = append([]string(nil), ids...)
	return nil
}

// PreviewCluster implements Engine. Previews never mutate engine state, and
// numeric previews of items outside the current scope render a "?" label
// rather than failing: the authoritative number arrives with the next
// reprocessing pass.
func (e *SimpleEngine) PreviewCluster(c *cluster.Cluster) (string, error) {
	return e.renderCluster(c, true)
}

// ProcessCluster implements Engine. Re-feeding a cluster id updates it in
// place; processing returns fresh markup for every known cluster because
// numbering and labels can shift as siblings arrive.
func (e *SimpleEngine) ProcessCluster(c *cluster.Cluster) ([]ClusterUpdate, error) {
	replaced := false
	for i, existing := range e.clusters {
		if existing.ID == c.ID {
			e.clusters[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		e.clusters = append(e.clusters, c)
	}

	updates := make([]ClusterUpdate, 0, len(e.clusters))
	for _, cl := range e.clusters {
		markup, err := e.renderCluster(cl, false)
		if err != nil {
			return nil, fmt.Errorf("process cluster %s: %w", cl.ID, err)
		}
		updates = append(updates, ClusterUpdate{ClusterID: cl.ID, HTML: markup})
	}
	return updates, nil
}

// MakeBibliography implements Engine.
func (e *SimpleEngine) MakeBibliography() (*Bibliography, error) {
	ids := e.bibliographyIDs()

	bib := &Bibliography{
		Start:         `<div class="csl-bib-body">`,
		End:           `</div>`,
		LineSpacing:   e.spec.Bibliography.LineSpacing,
		HangingIndent: e.spec.Bibliography.HangingIndent,
	}

	for i, id := range ids {
		entry, ok := e.sys.RetrieveItem(id)
		if !ok {
			return nil, fmt.Errorf("unknown reference id %q", id)
		}
		bib.EntryIDs = append(bib.EntryIDs, id)
		bib.Entries = append(bib.Entries,
			`<div class="csl-entry">`+e.formatEntry(entry, i+1)+`</div>`)
	}
	return bib, nil
}

// bibliographyIDs returns the entry order: cited scope first-seen order plus
// uncited items, deduplicated, then sorted per the style.
func (e *SimpleEngine) bibliographyIDs() []string {
	seen := make(map[string]struct{}, len(e.scope)+len(e.uncited))
	ids := make([]string, 0, len(e.scope)+len(e.uncited))
	for _, id := range append(append([]string(nil), e.scope...), e.uncited...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	if e.spec.Bibliography.Sort == SortAuthor {
		keys := make(map[string]string, len(ids))
		for _, id := range ids {
			keys[id] = e.sortKey(id)
		}
		sort.SliceStable(ids, func(i, j int) bool {
			return e.collator.CompareString(keys[ids[i]], keys[ids[j]]) < 0
		})
	}
	return ids
}

// numbering maps reference id to its 1-based bibliography position.
func (e *SimpleEngine) numbering() map[string]int {
	nums := make(map[string]int)
	for i, id := range e.bibliographyIDs() {
		nums[id] = i + 1
	}
	return nums
}

// sortKey builds the collation key for author sorting: families, year, id.
func (e *SimpleEngine) sortKey(id string) string {
	entry, ok := e.sys.RetrieveItem(id)
	if !ok {
		return id
	}
	var parts []string
	for _, a := range entry.Authors {
		parts = append(parts, a.Family)
	}
	parts = append(parts, strconv.Itoa(entry.Year), id)
	return strings.Join(parts, " ")
}

// renderCluster renders one cluster. preview relaxes numeric scope misses
// to "?" instead of failing.
func (e *SimpleEngine) renderCluster(c *cluster.Cluster, preview bool) (string, error) {
	cs := e.spec.Citation

	var nums map[string]int
	if e.spec.Format == FormatNumeric {
		nums = e.numbering()
	}

	parts := make([]string, 0, len(c.Items))
	for _, item := range c.Items {
		text, err := e.renderItem(item, c.Properties.Mode, nums, preview)
		if err != nil {
			return "", err
		}
		parts = append(parts, text)
	}

	joined := strings.Join(parts, cs.Delimiter)
	if c.Properties.Mode == cluster.ModeComposite && e.spec.Format == FormatAuthorDate {
		// Composite items carry their own wrapping punctuation.
		return joined, nil
	}
	return cs.Prefix + joined + cs.Suffix, nil
}

// renderItem renders one citation item, including the caller's (possibly
// link-augmented) prefix and suffix.
func (e *SimpleEngine) renderItem(item cluster.CitationItem, mode cluster.Mode, nums map[string]int, preview bool) (string, error) {
	entry, ok := e.sys.RetrieveItem(item.ID)
	if !ok {
		return "", fmt.Errorf("unknown reference id %q", item.ID)
	}

	var core string
	switch e.spec.Format {
	case FormatNumeric:
		n, scoped := nums[item.ID]
		if !scoped {
			if !preview {
				return "", fmt.Errorf("reference %q not in engine scope", item.ID)
			}
			core = "?"
		} else {
			core = strconv.Itoa(n)
		}
		if item.Locator != "" {
			core += ", " + e.locatorLabel(item) + " " + html.EscapeString(item.Locator)
		}

	default: // author-date
		year := e.yearLabel(entry)
		if item.Locator != "" {
			year += ", " + e.locatorLabel(item) + " " + html.EscapeString(item.Locator)
		}
		switch {
		case item.SuppressAuthor:
			core = year
		case mode == cluster.ModeComposite:
			// Author in running text, year parenthesized: "Smith (2020)".
			return item.Prefix + e.authorLabel(entry) + " " +
				e.spec.Citation.Prefix + year + e.spec.Citation.Suffix +
				item.Suffix, nil
		default:
			core = e.authorLabel(entry) + e.spec.Citation.YearDelimiter + year
		}
	}

	return item.Prefix + core + item.Suffix, nil
}

// authorLabel renders the in-text author portion with et-al truncation.
func (e *SimpleEngine) authorLabel(entry refstore.Entry) string {
	cs := e.spec.Citation

	families := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		families = append(families, html.EscapeString(a.Family))
	}

	switch {
	case len(families) == 0:
		return html.EscapeString(e.loc.Term("anonymous", "Anonymous"))
	case len(families) == 1:
		return families[0]
	case len(families) >= cs.EtAlMin:
		head := families[:cs.EtAlUseFirst]
		return strings.Join(head, ", ") + " " + html.EscapeString(e.loc.Term("et-al", "et al."))
	default:
		and := html.EscapeString(e.loc.Term("and", "and"))
		return strings.Join(families[:len(families)-1], ", ") + " " + and + " " + families[len(families)-1]
	}
}

// yearLabel renders the year or the localized no-date term.
func (e *SimpleEngine) yearLabel(entry refstore.Entry) string {
	if entry.Year == 0 {
		return html.EscapeString(e.loc.Term("no-date", "n.d."))
	}
	return strconv.Itoa(entry.Year)
}

// locatorLabel returns the item's locator label, defaulting to "page".
func (e *SimpleEngine) locatorLabel(item cluster.CitationItem) string {
	if item.Label != "" {
		return html.EscapeString(item.Label)
	}
	return html.EscapeString(e.loc.Term("page", "p."))
}

// formatEntry renders one bibliography entry body.
func (e *SimpleEngine) formatEntry(entry refstore.Entry, number int) string {
	title := html.EscapeString(entry.CleanTitle())

	if e.spec.Format == FormatNumeric {
		var b strings.Builder
		fmt.Fprintf(&b, "[%d] ", number)
		if names := e.entryAuthorsNumeric(entry); names != "" {
			b.WriteString(names + ", ")
		}
		fmt.Fprintf(&b, "&#34;%s,&#34;", title)
		if entry.Container != "" {
			b.WriteString(" <i>" + html.EscapeString(entry.Container) + "</i>,")
		}
		if entry.Publisher != "" {
			b.WriteString(" " + html.EscapeString(entry.Publisher) + ",")
		}
		b.WriteString(" " + e.yearLabel(entry) + ".")
		return b.String()
	}

	var b strings.Builder
	if names := e.entryAuthorsAuthorDate(entry); names != "" {
		b.WriteString(names + " ")
	}
	fmt.Fprintf(&b, "(%s). %s.", e.yearLabel(entry), title)
	if entry.Container != "" {
		b.WriteString(" <i>" + html.EscapeString(entry.Container) + "</i>.")
	}
	if entry.Publisher != "" {
		b.WriteString(" " + html.EscapeString(entry.Publisher) + ".")
	}
	if entry.URL != "" {
		b.WriteString(" " + html.EscapeString(entry.URL))
	}
	return b.String()
}

// entryAuthorsAuthorDate formats "Family, G., Family, G., &amp; Family, G."
func (e *SimpleEngine) entryAuthorsAuthorDate(entry refstore.Entry) string {
	if len(entry.Authors) == 0 {
		return ""
	}
	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := html.EscapeString(a.Family)
		if init := initials(a.Given); init != "" {
			name += ", " + init
		}
		names = append(names, name)
	}
	joined := names[0]
	if len(names) > 1 {
		joined = strings.Join(names[:len(names)-1], ", ") + ", &amp; " + names[len(names)-1]
	}
	// Initials already end in a period; don't double it.
	if !strings.HasSuffix(joined, ".") {
		joined += "."
	}
	return joined
}

// entryAuthorsNumeric formats "G. Family, G. Family and G. Family".
func (e *SimpleEngine) entryAuthorsNumeric(entry refstore.Entry) string {
	if len(entry.Authors) == 0 {
		return ""
	}
	and := html.EscapeString(e.loc.Term("and", "and"))
	names := make([]string, 0, len(entry.Authors))
	for _, a := range entry.Authors {
		name := html.EscapeString(a.Family)
		if init := initials(a.Given); init != "" {
			name = init + " " + name
		}
		names = append(names, name)
	}
	if len(names) == 1 {
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " " + and + " " + names[len(names)-1]
}

// initials reduces a given name to dotted initials: "Jane Q" -> "J. Q.".
func initials(given string) string {
	fields := strings.Fields(given)
	if len(fields) == 0 {
		return ""
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		r := []rune(f)
		parts = append(parts, html.EscapeString(string(r[0]))+".")
	}
	return strings.Join(parts, " ")
}
