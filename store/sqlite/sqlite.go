/*
Package sqlite provides the SQLite-backed classifier decision cache.

PURPOSE:
  Implements exclusion.CacheStore. The external rule classification is the
  single latency-dominant operation in the pipeline; its result depends
  only on the distinct-value set, so re-runs over an unchanged worker
  population read the decision set from here instead of calling out again.

KEY TABLE:
  decision_cache: fingerprint → decision-set JSON, keyed by the SHA-256 of
  the sorted distinct values plus the ruleset version. Rows are only ever
  inserted or replaced whole; there is nothing to update piecemeal.

WAL MODE:
  SQLite is opened with WAL so a cache read during a concurrent API-driven
  stage run does not block the writer.

USAGE:
  cache, err := sqlite.New("./data/decisions.db")
  if err != nil {
      log.Fatal(err)
  }
  defer cache.Close()

  classifier := exclusion.WithCache(inner, cache, logger)

SEE ALSO:
  - exclusion/cache.go: Fingerprint and the caching wrapper
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/voucher-engine/exclusion"
)

// Cache implements exclusion.CacheStore using SQLite.
type Cache struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates the cache at the given database path.
// Use ":memory:" for an in-memory cache.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	cache := &Cache{db: db}
	if err := cache.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return cache, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func (c *Cache) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS decision_cache (
		fingerprint TEXT PRIMARY KEY,
		decisions_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := c.db.Exec(schema)
	return err
}

// Get returns the cached decision set for a fingerprint, if present.
func (c *Cache) Get(ctx context.Context, key string) (*exclusion.DecisionSet, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var raw string
	err := c.db.QueryRowContext(ctx,
		`SELECT decisions_json FROM decision_cache WHERE fingerprint = ?`, key,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var decisions exclusion.DecisionSet
	if err := json.Unmarshal([]byte(raw), &decisions); err != nil {
		return nil, false, fmt.Errorf("corrupt cache row %s: %w", key, err)
	}
	return &decisions, true, nil
}

// Put stores a decision set, replacing any prior row for the fingerprint.
func (c *Cache) Put(ctx context.Context, key string, decisions *exclusion.DecisionSet) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	raw, err := json.Marshal(decisions)
	if err != nil {
		return err
	}
	_, err = c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO decision_cache (fingerprint, decisions_json, created_at)
		 VALUES (?, ?, ?)`,
		key, string(raw), time.Now().UTC().Format(time.RFC3339))
	return err
}
