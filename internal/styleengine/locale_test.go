package styleengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const enUSLocale = `
terms:
  and: and
  et-al: et al.
  no-date: n.d.
  anonymous: Anonymous
  page: p.
`

func TestParseLocale(t *testing.T) {
	loc, err := ParseLocale("en-US", enUSLocale)
	require.NoError(t, err)

	assert.Equal(t, "et al.", loc.Term("et-al", "??"))
	assert.Equal(t, "fallback", loc.Term("unknown-term", "fallback"))
}

func TestParseLocale_BadTag(t *testing.T) {
	_, err := ParseLocale("!!not-a-tag!!", enUSLocale)
	assert.Error(t, err)
}

func TestParseLocale_BadYAML(t *testing.T) {
	_, err := ParseLocale("en-US", "terms: [broken")
	assert.Error(t, err)
}

func TestParseLocale_EmptyTerms(t *testing.T) {
	loc, err := ParseLocale("de-DE", "")
	require.NoError(t, err)
	assert.Equal(t, "und", loc.Term("and", "und"))
}
