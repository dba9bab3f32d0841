package lastsearch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps the city in a local SQLite key/value table, so it
// survives restarts the way browser local storage does.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection serializes writers; the table holds one row.
	db.SetMaxOpenConns(1)

	const schema = `CREATE TABLE IF NOT EXISTS preferences (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create preferences table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context) (string, error) {
	var city string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, Key).Scan(&city)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read last city: %w", err)
	}
	return city, nil
}

// Set implements Store.
func (s *SQLiteStore) Set(ctx context.Context, city string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		Key, city, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write last city: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
