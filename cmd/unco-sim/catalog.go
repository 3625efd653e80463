package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

var errNoAsset = errors.New("no such asset")

const memoryCatalog = ":memory:"

// catalog is an asset store backed by SQLite. It doubles as the
// [latent.Loader] entities stream their assets in with.
type catalog struct {
	db      *sql.DB
	latency time.Duration
}

// openCatalog opens (creating if needed) the asset catalog at path.
// The special path ":memory:" keeps the catalog in memory.
func openCatalog(path string, latency time.Duration) (*catalog, error) {
	if path != memoryCatalog {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// Every connection to ":memory:" is a database of its own.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping catalog: %w", err)
	}

	const schema = `CREATE TABLE IF NOT EXISTS assets (
		key TEXT PRIMARY KEY,
		payload TEXT NOT NULL,
		updated DATETIME NOT NULL
	);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	return &catalog{db: db, latency: latency}, nil
}

// put stores payload under key, replacing any previous payload.
func (c *catalog) put(ctx context.Context, key, payload string) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO assets (key, payload, updated) VALUES (?, ?, ?)`,
		key, payload, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put asset %q: %w", key, err)
	}
	return nil
}

func (c *catalog) count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM assets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return n, nil
}

// Load waits out the simulated streaming latency, then reads the payload
// stored under key.
func (c *catalog) Load(ctx context.Context, key string) (string, error) {
	if c.latency > 0 {
		t := time.NewTimer(c.latency)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	var payload string
	err := c.db.QueryRowContext(ctx, `SELECT payload FROM assets WHERE key = ?`, key).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", fmt.Errorf("load asset %q: %w", key, errNoAsset)
	case err != nil:
		return "", fmt.Errorf("load asset %q: %w", key, err)
	}
	return payload, nil
}

func (c *catalog) close() error {
	return c.db.Close()
}
