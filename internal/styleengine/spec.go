package styleengine

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// Style formats understood by the built-in processor.
const (
	FormatAuthorDate = "author-date"
	FormatNumeric    = "numeric"
)

// Bibliography sort orders.
const (
	SortAuthor = "author" // collated author key, then year, then id
	SortCited  = "cited"  // cited-scope order, uncited items after
)

// StyleSpec is a decoded style definition: the declarative description of
// how citations and bibliography entries are punctuated and truncated.
type StyleSpec struct {
	Name         string       `json:"name"`
	Class        string       `json:"class"`
	Format       string       `json:"format"`
	Citation     CitationSpec `json:"citation"`
	Bibliography BibSpec      `json:"bibliography"`
}

// CitationSpec controls inline citation rendering.
type CitationSpec struct {
	Prefix        string `json:"prefix"`
	Suffix        string `json:"suffix"`
	Delimiter     string `json:"delimiter"`
	YearDelimiter string `json:"yearDelimiter"`
	EtAlMin       int    `json:"etAlMin"`
	EtAlUseFirst  int    `json:"etAlUseFirst"`
}

// BibSpec controls bibliography rendering and layout metadata.
type BibSpec struct {
	LineSpacing   float64 `json:"lineSpacing"`
	HangingIndent bool    `json:"hangingIndent"`
	Sort          string  `json:"sort"`
}

// styleSchema constrains style definitions and supplies defaults. Unifying
// a definition against #Style both validates it and fills in every optional
// field.
const styleSchema = `
#Style: {
	name:   string
	class:  "in-text"
	format: "author-date" | "numeric"
	citation: {
		prefix:        string | *"("
		suffix:        string | *")"
		delimiter:     string | *"; "
		yearDelimiter: string | *", "
		etAlMin:       int & >=2 | *4
		etAlUseFirst:  int & >=1 | *1
	}
	bibliography: {
		lineSpacing:   number & >=1 | *1.0
		hangingIndent: bool | *false
		sort:          "author" | "cited" | *"author"
	}
}
`

// ParseStyle compiles and validates a CUE style definition.
func ParseStyle(definition string) (*StyleSpec, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(styleSchema).LookupPath(cue.ParsePath("#Style"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile style schema: %w", err)
	}

	val := ctx.CompileString(definition)
	if err := val.Err(); err != nil {
		return nil, fmt.Errorf("compile style definition: %s", cueerrors.Details(err, nil))
	}

	unified := schema.Unify(val)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return nil, fmt.Errorf("validate style definition: %s", cueerrors.Details(err, nil))
	}

	spec := &StyleSpec{}
	if err := unified.Decode(spec); err != nil {
		return nil, fmt.Errorf("decode style definition: %w", err)
	}
	return spec, nil
}
