package styleengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const apaDef = `
name:   "apa"
class:  "in-text"
format: "author-date"
citation: {
	etAlMin:      3
	etAlUseFirst: 1
}
bibliography: {
	lineSpacing:   2.0
	hangingIndent: true
}
`

const ieeeDef = `
name:   "ieee"
class:  "in-text"
format: "numeric"
citation: {
	prefix:    "["
	suffix:    "]"
	delimiter: ", "
}
bibliography: {
	sort: "cited"
}
`

func TestParseStyle_AuthorDate(t *testing.T) {
	spec, err := ParseStyle(apaDef)
	require.NoError(t, err)

	assert.Equal(t, "apa", spec.Name)
	assert.Equal(t, FormatAuthorDate, spec.Format)
	assert.Equal(t, 3, spec.Citation.EtAlMin)
	assert.Equal(t, 1, spec.Citation.EtAlUseFirst)

	// Schema defaults fill in everything the definition omits.
	assert.Equal(t, "(", spec.Citation.Prefix)
	assert.Equal(t, ")", spec.Citation.Suffix)
	assert.Equal(t, "; ", spec.Citation.Delimiter)
	assert.Equal(t, ", ", spec.Citation.YearDelimiter)
	assert.Equal(t, SortAuthor, spec.Bibliography.Sort)
	assert.Equal(t, 2.0, spec.Bibliography.LineSpacing)
	assert.True(t, spec.Bibliography.HangingIndent)
}

func TestParseStyle_Numeric(t *testing.T) {
	spec, err := ParseStyle(ieeeDef)
	require.NoError(t, err)

	assert.Equal(t, FormatNumeric, spec.Format)
	assert.Equal(t, "[", spec.Citation.Prefix)
	assert.Equal(t, "]", spec.Citation.Suffix)
	assert.Equal(t, SortCited, spec.Bibliography.Sort)
	assert.Equal(t, 1.0, spec.Bibliography.LineSpacing)
	assert.False(t, spec.Bibliography.HangingIndent)
	assert.Equal(t, 4, spec.Citation.EtAlMin)
}

func TestParseStyle_MissingFormat(t *testing.T) {
	_, err := ParseStyle(`name: "broken", class: "in-text"`)
	assert.Error(t, err, "format has no default and must be concrete")
}

func TestParseStyle_BadFormat(t *testing.T) {
	_, err := ParseStyle(`name: "broken", class: "in-text", format: "footnote"`)
	assert.Error(t, err)
}

func TestParseStyle_NotCUE(t *testing.T) {
	_, err := ParseStyle(`{{{`)
	assert.Error(t, err)
}
