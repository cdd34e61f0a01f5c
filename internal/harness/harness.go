package harness

import (
	"context"
	"fmt"

	"github.com/roach88/citekit"
	"github.com/roach88/citekit/internal/document"
	"github.com/roach88/citekit/internal/testutil"
)

// Result captures a scenario execution: the serialized document (anchors in
// citation order, then the bibliography container) plus per-step outcomes.
type Result struct {
	SessionID string

	// Document is the full serialized document after the bibliography pass.
	Document string

	// Citations holds each step's anchor markup, post-reprocessing.
	Citations []string

	// Errors holds each step's citation error message, "" on success.
	Errors []string
}

// Run executes a scenario against a fresh in-memory session. Ids are
// sequential ("h-1", ...) so the resulting document is byte-stable.
func Run(scenario *Scenario) (*Result, error) {
	doc := document.NewMemDocument()
	frame := testutil.NewManualFrame()

	opts := []citekit.Option{
		citekit.WithDocument(doc),
		citekit.WithFrame(frame),
		citekit.WithIDSource(testutil.NewSequentialIDs("h").Next),
		citekit.WithLogger(testutil.SilentLogger()),
		citekit.WithLinkCitations(scenario.Link),
	}
	if scenario.Style != "" {
		opts = append(opts, citekit.WithStyle(scenario.Style))
	}
	if scenario.Locale != "" {
		opts = append(opts, citekit.WithLocale(scenario.Locale))
	}

	session, err := citekit.Create(context.Background(), []byte(scenario.References), opts...)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	defer session.Dispose()

	result := &Result{SessionID: session.ID()}

	anchors := make([]citekit.Node, 0, len(scenario.Steps))
	for _, step := range scenario.Steps {
		var c *citekit.Citation
		switch {
		case len(step.Composite) > 0:
			c = session.CiteComposite(step.Composite...)
		case step.Prefix != "":
			c = session.CiteWithPrefix(step.Prefix, step.Cite...)
		default:
			c = session.Cite(step.Cite...)
		}
		anchors = append(anchors, c.Anchor)
		if c.Err != nil {
			result.Errors = append(result.Errors, c.Err.Error())
		} else {
			result.Errors = append(result.Errors, "")
		}
	}

	session.Bibliography(citekit.BibliographyOptions{ShowAll: scenario.ShowAll})
	frame.Fire()

	for _, anchor := range anchors {
		result.Citations = append(result.Citations, anchor.HTML())
	}
	result.Document = doc.Render()
	return result, nil
}
