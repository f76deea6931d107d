// Package store implements the cache port on SQLite: a key-value table with
// per-row expiry enforced on read.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	_ "modernc.org/sqlite"

	"snatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    expires_at INTEGER NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_cache_expires ON cache(expires_at);
`

// Store implements domain.Cache using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if needed) the database at dbPath and initializes the
// schema.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value for key, reporting false for missing or expired
// entries. Expired rows are deleted on sight.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	var expiresAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache WHERE key = ?`, key,
	).Scan(&value, &expiresAt)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if expiresAt <= s.now().Unix() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key)
		return "", false, nil
	}
	return value, true, nil
}

// Set stores value under key with the given TTL, replacing any previous
// entry. Expired rows are purged opportunistically on each write.
func (s *Store) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	now := s.now()
	_, _ = s.db.ExecContext(ctx, `DELETE FROM cache WHERE expires_at <= ?`, now.Unix())
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO cache (key, value, expires_at, created_at) VALUES (?, ?, ?, ?)`,
		key, value, now.Add(ttl).Unix(), now,
	)
	return err
}

// Exists reports whether key is present and unexpired.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache WHERE key = ? AND expires_at > ?`,
		key, s.now().Unix(),
	).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache WHERE key = ?`, key)
	return err
}

// Stats returns the live key count and approximate on-disk size.
func (s *Store) Stats(ctx context.Context) (domain.CacheStats, error) {
	var stats domain.CacheStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cache WHERE expires_at > ?`, s.now().Unix(),
	).Scan(&stats.Keys)
	if err != nil {
		return stats, err
	}

	var pageCount, pageSize int64
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err != nil {
		return stats, err
	}
	if err := s.db.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err != nil {
		return stats, err
	}
	stats.MemoryUsage = humanize.Bytes(uint64(pageCount * pageSize))
	return stats, nil
}
