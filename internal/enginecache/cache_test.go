package enginecache

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/citekit/internal/testutil"
)

func newCache(factory *testutil.ScriptedFactory) *Cache {
	return New(Config{
		Factory:    factory,
		StyleDef:   "unused",
		LocaleName: "en-US",
		NewID:      testutil.NewSequentialIDs("eng").Next,
		Logger:     testutil.SilentLogger(),
	})
}

func TestCited_RebuildOnlyOnKeyChange(t *testing.T) {
	factory := &testutil.ScriptedFactory{}
	c := newCache(factory)

	eng1, id1, err := c.Cited("a,b", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, 1, factory.Built)

	// Same key: same instance, same id, no rebuild.
	eng2, id2, err := c.Cited("a,b", []string{"a", "b"})
	require.NoError(t, err)
	assert.Same(t, eng1, eng2)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, factory.Built)

	// Key change: full reconstruction, new instance id.
	eng3, id3, err := c.Cited("a,b,c", []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.NotSame(t, eng1, eng3)
	assert.NotEqual(t, id1, id3)
	assert.Equal(t, 2, factory.Built)
	assert.Equal(t, []string{"a", "b", "c"}, factory.Engines[1].Scope)
}

func TestShowAll_BuiltOnceNeverInvalidated(t *testing.T) {
	factory := &testutil.ScriptedFactory{}
	c := newCache(factory)

	eng1, id1, err := c.ShowAll([]string{"b"}, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, factory.Engines[0].Scope)
	assert.Equal(t, []string{"a", "c"}, factory.Engines[0].Uncited)

	// Citation activity changed the cited set; the show-all engine is
	// untouched because its scope is fixed.
	eng2, id2, err := c.ShowAll([]string{"a", "b"}, []string{"a", "b", "c"})
	require.NoError(t, err)
	assert.Same(t, eng1, eng2)
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, factory.Built)
}

func TestPreview_UsesCitedEngineWhenLive(t *testing.T) {
	factory := &testutil.ScriptedFactory{}
	c := newCache(factory)

	cited, citedID, err := c.Cited("a", []string{"a"})
	require.NoError(t, err)

	p, pid, err := c.Preview()
	require.NoError(t, err)
	assert.Same(t, cited, p)
	assert.Equal(t, citedID, pid)
}

func TestPreview_BaseEngineBeforeAnyCitation(t *testing.T) {
	factory := &testutil.ScriptedFactory{}
	c := newCache(factory)

	p1, id1, err := c.Preview()
	require.NoError(t, err)
	p2, id2, err := c.Preview()
	require.NoError(t, err)

	assert.Same(t, p1, p2, "base preview engine is built once")
	assert.Equal(t, id1, id2)
	assert.Equal(t, 1, factory.Built)
}

func TestCited_FactoryError(t *testing.T) {
	factory := &testutil.ScriptedFactory{Err: errors.New("style corrupt")}
	c := newCache(factory)

	_, _, err := c.Cited("a", []string{"a"})
	assert.ErrorContains(t, err, "style corrupt")
}
