// Package catalog stores parsed configurations in SQLite.
//
// Each Store call records an immutable snapshot under a fresh UUID. The
// configuration is kept as a canonical CBOR blob; an advice index makes it
// possible to ask which aspects apply a given interceptor across every
// snapshot. Loaded snapshots are cached in memory.
package catalog

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chazu/adl/pkg/ast"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/tliron/commonlog"
)

// ErrSnapshotNotFound indicates the requested snapshot doesn't exist in the database.
var ErrSnapshotNotFound = errors.New("snapshot not found")

var log = commonlog.GetLogger("adl.catalog")

// timeFormat sorts lexically in time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	created_at TEXT NOT NULL,
	aspects    INTEGER NOT NULL,
	config     BLOB NOT NULL
);
CREATE TABLE IF NOT EXISTS advice_index (
	snapshot_id TEXT NOT NULL,
	aspect      TEXT NOT NULL,
	advice      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS advice_index_advice ON advice_index (advice);
CREATE INDEX IF NOT EXISTS advice_index_snapshot ON advice_index (snapshot_id);
`

// Snapshot describes one stored configuration.
type Snapshot struct {
	ID        string
	Source    string
	CreatedAt time.Time
	Aspects   int
}

// AspectRef names an aspect inside a stored snapshot.
type AspectRef struct {
	SnapshotID string
	Source     string
	Aspect     string
}

// DefaultCacheSize is the number of snapshots kept in memory when
// Config.CacheSize is zero.
const DefaultCacheSize = 64

// cacheEntry holds the encoded snapshot, so every Load hands out its own tree.
type cacheEntry struct {
	data       []byte
	accessedAt time.Time
}

// Catalog manages snapshot persistence.
type Catalog struct {
	db      *sql.DB
	dbPath  string
	cache   map[string]*cacheEntry
	cacheMu sync.RWMutex
	maxSize int
	hits    int
	misses  int
}

// Config holds catalog configuration options.
type Config struct {
	Path      string // Path to the database (defaults to ~/.adl/catalog.db)
	CacheSize int    // Snapshots kept in memory (defaults to DefaultCacheSize)
}

// Open opens or creates the catalog database and its schema.
// If cfg is nil, defaults are used.
func Open(cfg *Config) (*Catalog, error) {
	c := &Catalog{
		cache:   make(map[string]*cacheEntry),
		maxSize: DefaultCacheSize,
	}
	if cfg != nil && cfg.CacheSize > 0 {
		c.maxSize = cfg.CacheSize
	}

	if cfg != nil && cfg.Path != "" {
		c.dbPath = cfg.Path
	} else if dbPath := os.Getenv("ADL_CATALOG_DB"); dbPath != "" {
		c.dbPath = dbPath
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home dir: %w", err)
		}
		c.dbPath = filepath.Join(home, ".adl", "catalog.db")
	}

	if c.dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(c.dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", c.dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	c.db = db
	if c.dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	log.Debugf("opened catalog %s", c.dbPath)
	return c, nil
}

// Path returns the database location.
func (c *Catalog) Path() string {
	return c.dbPath
}

// Close closes the catalog and its database connection.
func (c *Catalog) Close() error {
	size, hits, misses := c.CacheStats()
	log.Debugf("closing catalog %s (cache size=%d hits=%d misses=%d)", c.dbPath, size, hits, misses)
	c.ClearCache()

	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Store records cfg as a new snapshot and returns its ID.
func (c *Catalog) Store(source string, cfg *ast.Configuration) (string, error) {
	data, err := ast.Marshal(cfg, ast.FormatCBOR)
	if err != nil {
		return "", fmt.Errorf("encoding configuration: %w", err)
	}

	id := uuid.New().String()
	now := time.Now().UTC()

	tx, err := c.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO snapshots (id, source, created_at, aspects, config) VALUES (?, ?, ?, ?, ?)",
		id, source, now.Format(timeFormat), len(cfg.Aspects), data,
	)
	if err != nil {
		return "", fmt.Errorf("saving snapshot: %w", err)
	}

	for _, row := range adviceRows(cfg) {
		if _, err := tx.Exec(
			"INSERT INTO advice_index (snapshot_id, aspect, advice) VALUES (?, ?, ?)",
			id, row.aspect, row.advice,
		); err != nil {
			return "", fmt.Errorf("indexing advice: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing snapshot: %w", err)
	}

	c.remember(id, data)

	log.Infof("stored snapshot %s (%s, %d aspects)", id, source, len(cfg.Aspects))
	return id, nil
}

type adviceRow struct {
	aspect string
	advice string
}

// adviceRows lists the index keys of every advice reference: the link key or
// type name as written, plus the declared type name for resolvable links.
func adviceRows(cfg *ast.Configuration) []adviceRow {
	var rows []adviceRow
	for _, a := range cfg.Aspects {
		seen := map[string]bool{}
		add := func(key string) {
			if key == "" || seen[key] {
				return
			}
			seen[key] = true
			rows = append(rows, adviceRow{aspect: a.Name, advice: key})
		}
		for _, pc := range a.Pointcuts {
			for _, adv := range pc.Advice {
				if !adv.Type.IsLink() {
					add(adv.Type.TypeName)
					continue
				}
				add(adv.Type.Link)
				if decl, ok := cfg.Interceptors.Get(adv.Type.Link); ok && !decl.Type.IsLink() {
					add(decl.Type.TypeName)
				}
			}
		}
	}
	return rows
}

// Load returns the configuration stored under id.
func (c *Catalog) Load(id string) (*ast.Configuration, error) {
	c.cacheMu.Lock()
	entry, ok := c.cache[id]
	if ok {
		entry.accessedAt = time.Now()
		c.hits++
	} else {
		c.misses++
	}
	c.cacheMu.Unlock()

	var data []byte
	if ok {
		data = entry.data
	} else {
		err := c.db.QueryRow("SELECT config FROM snapshots WHERE id = ?", id).Scan(&data)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, ErrSnapshotNotFound
			}
			return nil, fmt.Errorf("querying snapshot: %w", err)
		}
	}

	cfg, err := ast.Unmarshal(data, ast.FormatCBOR)
	if err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", id, err)
	}
	if !ok {
		c.remember(id, data)
	}
	return cfg, nil
}

// remember caches data under id, dropping the least recently used
// snapshots beyond the cache size.
func (c *Catalog) remember(id string, data []byte) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	c.cache[id] = &cacheEntry{data: data, accessedAt: time.Now()}
	for len(c.cache) > c.maxSize {
		var oldest string
		var oldestAt time.Time
		for k, e := range c.cache {
			if oldest == "" || e.accessedAt.Before(oldestAt) {
				oldest, oldestAt = k, e.accessedAt
			}
		}
		log.Debugf("evicting snapshot %s from cache", oldest)
		delete(c.cache, oldest)
	}
}

// List returns every snapshot, oldest first.
func (c *Catalog) List() ([]Snapshot, error) {
	rows, err := c.db.Query("SELECT id, source, created_at, aspects FROM snapshots ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var s Snapshot
		var created string
		if err := rows.Scan(&s.ID, &s.Source, &created, &s.Aspects); err != nil {
			return nil, fmt.Errorf("scanning snapshot: %w", err)
		}
		if s.CreatedAt, err = time.Parse(timeFormat, created); err != nil {
			return nil, fmt.Errorf("snapshot %s: bad timestamp %q: %w", s.ID, created, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindAspectsByAdvice returns the aspects whose pointcuts apply the given
// advice. typeOrLink matches a type name as written, a link key, or the type
// a link key is declared as.
func (c *Catalog) FindAspectsByAdvice(typeOrLink string) ([]AspectRef, error) {
	rows, err := c.db.Query(`
		SELECT a.snapshot_id, s.source, a.aspect
		FROM advice_index a JOIN snapshots s ON s.id = a.snapshot_id
		WHERE a.advice = ?
		ORDER BY s.created_at, s.rowid, a.rowid`, typeOrLink)
	if err != nil {
		return nil, fmt.Errorf("querying advice index: %w", err)
	}
	defer rows.Close()

	var out []AspectRef
	for rows.Next() {
		var r AspectRef
		if err := rows.Scan(&r.SnapshotID, &r.Source, &r.Aspect); err != nil {
			return nil, fmt.Errorf("scanning aspect: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Delete removes a snapshot from the database and cache.
func (c *Catalog) Delete(id string) error {
	c.Evict(id)

	tx, err := c.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec("DELETE FROM snapshots WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting snapshot: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrSnapshotNotFound
	}
	if _, err := tx.Exec("DELETE FROM advice_index WHERE snapshot_id = ?", id); err != nil {
		return fmt.Errorf("deleting advice index: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	log.Infof("deleted snapshot %s", id)
	return nil
}

// CacheStats returns statistics about the snapshot cache.
func (c *Catalog) CacheStats() (size, hits, misses int) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	return len(c.cache), c.hits, c.misses
}

// ClearCache removes all entries from the cache.
func (c *Catalog) ClearCache() {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	c.cache = make(map[string]*cacheEntry)
}

// Evict removes a specific snapshot from the cache.
func (c *Catalog) Evict(id string) {
	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()
	delete(c.cache, id)
}

