// Package enginecache memoizes style-engine instances per scoping mode.
//
// Engines are expensive to construct, so at most one instance per mode is
// live at a time:
//
//   - the cited-only engine is keyed by the tracker's canonical sorted-id
//     key and fully reconstructed exactly when that key changes (incremental
//     item updates are not assumed safe)
//   - the show-all engine spans every known reference id; its scope is fixed
//     for the session, so citation activity never invalidates it
//
// Every live instance carries a unique id, used to scope emitted style
// blocks and citation-changed event payloads.
package enginecache

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/citekit/internal/styleengine"
)

// Config carries cache construction parameters. The style definition and
// locale name are fixed for the session.
type Config struct {
	Factory    styleengine.Factory
	System     styleengine.SystemCallbacks
	StyleDef   string
	LocaleName string
	NewID      func() string
	Logger     *slog.Logger
}

// Cache owns the session's engine instances. Safe for concurrent use.
type Cache struct {
	cfg Config

	mu        sync.Mutex
	cited     styleengine.Engine
	citedKey  string
	citedID   string
	base      styleengine.Engine // empty-scope engine for pre-citation previews
	baseID    string
	all       styleengine.Engine
	allID     string
}

// New creates an empty cache.
func New(cfg Config) *Cache {
	return &Cache{cfg: cfg}
}

// Cited returns the cited-only engine for the given canonical key, scoped to
// ids. The engine is rebuilt only when the key differs from the last build;
// rebuilding discards the previous instance.
func (c *Cache) Cited(key string, ids []string) (styleengine.Engine, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cited != nil && c.citedKey == key {
		return c.cited, c.citedID, nil
	}

	eng, err := c.cfg.Factory.New(c.cfg.System, c.cfg.StyleDef, c.cfg.LocaleName)
	if err != nil {
		return nil, "", fmt.Errorf("construct cited engine: %w", err)
	}
	if err := eng.UpdateItems(ids); err != nil {
		return nil, "", fmt.Errorf("scope cited engine: %w", err)
	}

	c.cited = eng
	c.citedKey = key
	c.citedID = c.cfg.NewID()
	c.cfg.Logger.Debug("cited engine rebuilt",
		"engine_id", c.citedID,
		"cited_key", key,
		"item_count", len(ids),
	)
	return c.cited, c.citedID, nil
}

// ShowAll returns the show-all engine, building it once over all known ids:
// the cited ids as the engine's item scope and the remainder as uncited
// items. Citation activity never invalidates it.
func (c *Cache) ShowAll(citedIDs, allIDs []string) (styleengine.Engine, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.all != nil {
		return c.all, c.allID, nil
	}

	eng, err := c.cfg.Factory.New(c.cfg.System, c.cfg.StyleDef, c.cfg.LocaleName)
	if err != nil {
		return nil, "", fmt.Errorf("construct show-all engine: %w", err)
	}

	cited := make(map[string]struct{}, len(citedIDs))
	for _, id := range citedIDs {
		cited[id] = struct{}{}
	}
	uncited := make([]string, 0, len(allIDs))
	for _, id := range allIDs {
		if _, ok := cited[id]; !ok {
			uncited = append(uncited, id)
		}
	}

	if err := eng.UpdateItems(citedIDs); err != nil {
		return nil, "", fmt.Errorf("scope show-all engine: %w", err)
	}
	if err := eng.UpdateUncitedItems(uncited); err != nil {
		return nil, "", fmt.Errorf("scope show-all engine uncited: %w", err)
	}

	c.all = eng
	c.allID = c.cfg.NewID()
	c.cfg.Logger.Debug("show-all engine built",
		"engine_id", c.allID,
		"cited_count", len(citedIDs),
		"uncited_count", len(uncited),
	)
	return c.all, c.allID, nil
}

// Preview returns an engine suitable for single-cluster previews: the live
// cited engine when one exists, otherwise a lazily built empty-scope
// instance. Previews never mutate engine state, so sharing is safe.
func (c *Cache) Preview() (styleengine.Engine, string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cited != nil {
		return c.cited, c.citedID, nil
	}
	if c.base != nil {
		return c.base, c.baseID, nil
	}

	eng, err := c.cfg.Factory.New(c.cfg.System, c.cfg.StyleDef, c.cfg.LocaleName)
	if err != nil {
		return nil, "", fmt.Errorf("construct preview engine: %w", err)
	}
	c.base = eng
	c.baseID = c.cfg.NewID()
	return c.base, c.baseID, nil
}
