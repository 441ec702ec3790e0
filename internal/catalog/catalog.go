// Package catalog provides a SQLite-backed record of document uploads. The
// vector store holds chunks, not documents, so the catalog is what lets the
// API answer "which files have been ingested and when".
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Upload is one recorded document ingestion.
type Upload struct {
	// ID is the catalog row id.
	ID int64 `json:"id"`
	// Filename is the name the document was uploaded under.
	Filename string `json:"filename"`
	// ChunksAdded is how many chunks the ingestion produced.
	ChunksAdded int `json:"chunks_added"`
	// UploadedAt is when the ingestion completed.
	UploadedAt time.Time `json:"uploaded_at"`
}

// Catalog records and lists document uploads. Implementations must be safe
// for concurrent use.
type Catalog interface {
	// RecordUpload persists one ingestion record.
	RecordUpload(ctx context.Context, filename string, chunksAdded int) error
	// List returns all uploads, newest first.
	List(ctx context.Context) ([]Upload, error)
	// Clear removes every upload record.
	Clear(ctx context.Context) error
	// Close releases any resources held by the catalog.
	Close() error
}

// SQLiteCatalog is a Catalog backed by a local SQLite database.
type SQLiteCatalog struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the upload catalog database.
// It resolves to ~/.docqa/catalog.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docqa")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("catalog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// Open opens (or creates) a SQLiteCatalog at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteCatalog, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	c := &SQLiteCatalog{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// migrate creates the schema if it does not already exist.
func (c *SQLiteCatalog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS uploads (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    filename     TEXT    NOT NULL,
    chunks_added INTEGER NOT NULL,
    uploaded_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE INDEX IF NOT EXISTS idx_uploads_uploaded_at ON uploads (uploaded_at);
`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// RecordUpload persists one ingestion record.
func (c *SQLiteCatalog) RecordUpload(ctx context.Context, filename string, chunksAdded int) error {
	const q = `INSERT INTO uploads (filename, chunks_added, uploaded_at) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, filename, chunksAdded, time.Now().Unix()); err != nil {
		return fmt.Errorf("catalog: record upload: %w", err)
	}
	return nil
}

// List returns all uploads, newest first.
func (c *SQLiteCatalog) List(ctx context.Context) ([]Upload, error) {
	const q = `SELECT id, filename, chunks_added, uploaded_at FROM uploads ORDER BY uploaded_at DESC, id DESC`
	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	defer rows.Close()

	var uploads []Upload
	for rows.Next() {
		var u Upload
		var ts int64
		if err := rows.Scan(&u.ID, &u.Filename, &u.ChunksAdded, &ts); err != nil {
			return nil, fmt.Errorf("catalog: scan upload: %w", err)
		}
		u.UploadedAt = time.Unix(ts, 0).UTC()
		uploads = append(uploads, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list: %w", err)
	}
	return uploads, nil
}

// Clear removes every upload record.
func (c *SQLiteCatalog) Clear(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `DELETE FROM uploads`); err != nil {
		return fmt.Errorf("catalog: clear: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (c *SQLiteCatalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}
