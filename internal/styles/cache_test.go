package styles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingFetcher wraps a Fetcher and counts calls, to verify memoization.
type countingFetcher struct {
	inner Fetcher
	calls int
}

func (f *countingFetcher) Fetch(ctx context.Context, name string) (string, error) {
	f.calls++
	return f.inner.Fetch(ctx, name)
}

// failingFetcher always fails, simulating an unreachable resource source.
type failingFetcher struct{}

func (failingFetcher) Fetch(context.Context, string) (string, error) {
	return "", errors.New("network unreachable")
}

func TestEmbeddedFetcher_Style(t *testing.T) {
	body, err := EmbeddedFetcher{}.Fetch(context.Background(), StyleResource("apa"))
	require.NoError(t, err)
	assert.Contains(t, body, `format: "author-date"`)
}

func TestEmbeddedFetcher_Locale(t *testing.T) {
	body, err := EmbeddedFetcher{}.Fetch(context.Background(), LocaleResource("en-US"))
	require.NoError(t, err)
	assert.Contains(t, body, "et al.")
}

func TestEmbeddedFetcher_Missing(t *testing.T) {
	_, err := EmbeddedFetcher{}.Fetch(context.Background(), StyleResource("chicago"))
	assert.ErrorContains(t, err, "style/chicago")
}

func TestEmbeddedFetcher_UnknownKind(t *testing.T) {
	_, err := EmbeddedFetcher{}.Fetch(context.Background(), "font/helvetica")
	assert.Error(t, err)
}

func TestEmbeddedFetcher_Listings(t *testing.T) {
	assert.Equal(t, []string{"apa", "ieee"}, EmbeddedFetcher{}.Styles())
	assert.Equal(t, []string{"de-DE", "en-US"}, EmbeddedFetcher{}.Locales())
}

func TestCache_Memoizes(t *testing.T) {
	f := &countingFetcher{inner: EmbeddedFetcher{}}
	c := NewCache(f)

	ctx := context.Background()
	first, err := c.Get(ctx, StyleResource("apa"))
	require.NoError(t, err)
	second, err := c.Get(ctx, StyleResource("apa"))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.calls, "second read must come from memory")
}

func TestCache_FetchErrorNamesResource(t *testing.T) {
	c := NewCache(failingFetcher{})

	_, err := c.Get(context.Background(), LocaleResource("en-US"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `locale/en-US`)
}

func TestOpenCache_PersistsAcrossInstances(t *testing.T) {
	path := t.TempDir() + "/resources.db"
	ctx := context.Background()

	f := &countingFetcher{inner: EmbeddedFetcher{}}
	c, err := OpenCache(f, path)
	require.NoError(t, err)
	_, err = c.Get(ctx, StyleResource("ieee"))
	require.NoError(t, err)
	require.NoError(t, c.Close())
	assert.Equal(t, 1, f.calls)

	// A fresh cache over a fetcher that can no longer fetch still serves
	// the persisted copy.
	c2, err := OpenCache(failingFetcher{}, path)
	require.NoError(t, err)
	defer c2.Close()

	body, err := c2.Get(ctx, StyleResource("ieee"))
	require.NoError(t, err)
	assert.Contains(t, body, `format: "numeric"`)
}

func TestOpenCache_Memory(t *testing.T) {
	c, err := OpenCache(EmbeddedFetcher{}, ":memory:")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Get(context.Background(), LocaleResource("de-DE"))
	assert.NoError(t, err)
}
