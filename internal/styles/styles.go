// Package styles provides style and locale definition resources: named
// opaque text blobs consumed by the style engine.
//
// Resources are keyed "style/<name>" and "locale/<name>". A Fetcher resolves
// a key to its text (over the network in a browser host; from embedded data
// here); a Cache memoizes fetched text per resource key. The cache is an
// explicit object owned by session creation - there is no module-level
// state, so every test run gets an isolated instance.
package styles

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed data
var embedded embed.FS

// Resource key prefixes.
const (
	stylePrefix  = "style/"
	localePrefix = "locale/"
)

// StyleResource returns the resource key for a style name.
func StyleResource(name string) string { return stylePrefix + name }

// LocaleResource returns the resource key for a locale name.
func LocaleResource(name string) string { return localePrefix + name }

// Fetcher resolves a resource key to definition text. Fetch failures are
// fatal to session creation; there are no retries.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// EmbeddedFetcher serves the styles and locales compiled into the binary.
// It is the default fetcher.
type EmbeddedFetcher struct{}

// Fetch implements Fetcher.
func (EmbeddedFetcher) Fetch(_ context.Context, name string) (string, error) {
	var path string
	switch {
	case strings.HasPrefix(name, stylePrefix):
		path = "data/" + strings.TrimPrefix(name, stylePrefix) + ".cue"
	case strings.HasPrefix(name, localePrefix):
		path = "data/" + strings.TrimPrefix(name, localePrefix) + ".yaml"
	default:
		return "", fmt.Errorf("unknown resource kind for %q", name)
	}

	body, err := embedded.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("resource %q not found", name)
	}
	return string(body), nil
}

// Styles lists the embedded style names.
func (EmbeddedFetcher) Styles() []string { return embeddedNames(".cue") }

// Locales lists the embedded locale names.
func (EmbeddedFetcher) Locales() []string { return embeddedNames(".yaml") }

func embeddedNames(ext string) []string {
	entries, err := fs.ReadDir(embedded, "data")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ext) {
			names = append(names, strings.TrimSuffix(e.Name(), ext))
		}
	}
	sort.Strings(names)
	return names
}
