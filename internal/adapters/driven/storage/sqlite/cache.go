// Package sqlite provides the persistent embedding cache backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/qualex-labs/qualex/internal/core/ports/driven"
)

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache is the on-disk embedding cache, keyed by (model, content hash).
// It is additive-only during normal operation; entries are removed only by
// an explicit Clear.
type Cache struct {
	db   *sql.DB
	path string
}

// NewCache opens the embedding cache at the specified data directory.
// If dataDir is empty, defaults to ~/.qualex/data.
func NewCache(dataDir string) (*Cache, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".qualex", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "embeddings.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	c := &Cache{
		db:   db,
		path: dbPath,
	}

	if err := c.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return c, nil
}

// migrate creates the cache schema.
func (c *Cache) migrate() error {
	_, err := c.db.Exec(`
		CREATE TABLE IF NOT EXISTS embeddings (
			model      TEXT NOT NULL,
			hash       TEXT NOT NULL,
			dimension  INTEGER NOT NULL,
			vector     BLOB NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (model, hash)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating embeddings table: %w", err)
	}
	return nil
}

// Get returns the cached vector for (model, hash).
func (c *Cache) Get(ctx context.Context, model, hash string) ([]float32, bool, error) {
	var dim int
	var blob []byte
	err := c.db.QueryRowContext(ctx,
		"SELECT dimension, vector FROM embeddings WHERE model = ? AND hash = ?",
		model, hash,
	).Scan(&dim, &blob)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying embedding: %w", err)
	}

	vec, err := decodeVector(blob, dim)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Put stores a vector under (model, hash). Existing keys are never
// overwritten.
func (c *Cache) Put(ctx context.Context, model, hash string, vec []float32) error {
	_, err := c.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO embeddings (model, hash, dimension, vector) VALUES (?, ?, ?, ?)",
		model, hash, len(vec), encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	return nil
}

// Len returns the number of cached entries.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM embeddings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting embeddings: %w", err)
	}
	return n, nil
}

// Clear removes every cache entry.
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
		return fmt.Errorf("clearing embeddings: %w", err)
	}
	return nil
}

// Path returns the database file path.
func (c *Cache) Path() string {
	return c.path
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

// encodeVector packs a float32 vector as little-endian bytes.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// decodeVector unpacks a little-endian float32 vector.
func decodeVector(blob []byte, dim int) ([]float32, error) {
	if len(blob) != 4*dim {
		return nil, fmt.Errorf("vector blob length %d does not match dimension %d", len(blob), dim)
	}
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec, nil
}
