package lastsearch

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps the city in the preferences table of a shared
// database.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the preferences table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		return fmt.Errorf("create preferences table: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context) (string, error) {
	var city string
	err := s.pool.QueryRow(ctx, `SELECT value FROM preferences WHERE key = $1`, Key).Scan(&city)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read last city: %w", err)
	}
	return city, nil
}

// Set implements Store.
func (s *PostgresStore) Set(ctx context.Context, city string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO preferences (key, value, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		Key, city)
	if err != nil {
		return fmt.Errorf("write last city: %w", err)
	}
	return nil
}

var _ Store = (*PostgresStore)(nil)
