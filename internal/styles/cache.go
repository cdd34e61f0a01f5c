package styles

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

// Cache memoizes fetched resource text by resource key. Optionally backed by
// a SQLite file so fetched definitions survive process restarts.
//
// Safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	fetcher Fetcher
	entries map[string]string
	db      *sql.DB // nil when memory-only
}

// NewCache creates a memory-only cache over the given fetcher.
func NewCache(fetcher Fetcher) *Cache {
	return &Cache{
		fetcher: fetcher,
		entries: make(map[string]string),
	}
}

// OpenCache creates a cache persisted at the given SQLite path. ":memory:"
// gives an isolated throwaway database. Opening is idempotent: schema
// creation runs on every open.
func OpenCache(fetcher Fetcher, path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open resource cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect resource cache: %w", err)
	}

	// SQLite supports one writer; keep a single connection to avoid
	// SQLITE_BUSY on concurrent session creation.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}

	const schema = `
CREATE TABLE IF NOT EXISTS resources (
	name TEXT PRIMARY KEY,
	body TEXT NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply resource cache schema: %w", err)
	}

	c := NewCache(fetcher)
	c.db = db
	return c, nil
}

// Get returns the resource text for a key, consulting memory, then the
// persistent layer, then the fetcher. Fetched text is written back to every
// layer. Errors always name the resource key.
func (c *Cache) Get(ctx context.Context, name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if body, ok := c.entries[name]; ok {
		return body, nil
	}

	if c.db != nil {
		var body string
		err := c.db.QueryRowContext(ctx,
			"SELECT body FROM resources WHERE name = ?", name).Scan(&body)
		switch {
		case err == nil:
			c.entries[name] = body
			return body, nil
		case err != sql.ErrNoRows:
			return "", fmt.Errorf("read resource %q from cache: %w", name, err)
		}
	}

	body, err := c.fetcher.Fetch(ctx, name)
	if err != nil {
		return "", fmt.Errorf("fetch resource %q: %w", name, err)
	}
	c.entries[name] = body

	if c.db != nil {
		if _, err := c.db.ExecContext(ctx,
			"INSERT INTO resources (name, body) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET body = excluded.body",
			name, body); err != nil {
			// Persistence is best-effort; the in-memory copy is authoritative
			// for this process.
			slog.Warn("persist resource failed", "resource", name, "error", err)
		}
	}
	return body, nil
}

// Close releases the persistent layer, if any.
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
