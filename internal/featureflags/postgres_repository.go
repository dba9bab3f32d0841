package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	createFlagsTableSQL = `
		CREATE TABLE IF NOT EXISTS feature_flags (
			key        TEXT PRIMARY KEY,
			value      JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`

	selectFlagSQL = `SELECT key, value, updated_at FROM feature_flags WHERE key = $1`

	selectAllFlagsSQL = `SELECT key, value, updated_at FROM feature_flags ORDER BY key`

	upsertFlagSQL = `
		INSERT INTO feature_flags (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`

	deleteFlagSQL = `DELETE FROM feature_flags WHERE key = $1`
)

// PostgresRepository stores flags in the feature_flags table as JSONB values.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feature flags repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// EnsureSchema creates the feature_flags table if it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createFlagsTableSQL); err != nil {
		return fmt.Errorf("create feature_flags table: %w", err)
	}
	return nil
}

// GetFlag retrieves a single feature flag by key.
func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	flag, err := scanFlag(r.pool.QueryRow(ctx, selectFlagSQL, key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	return flag, err
}

// GetAllFlags retrieves all feature flags.
func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, selectAllFlagsSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flags := make(map[string]*Flag)
	for rows.Next() {
		flag, err := scanFlag(rows)
		if err != nil {
			return nil, err
		}
		flags[flag.Key] = flag
	}
	return flags, rows.Err()
}

// SetFlag creates or updates a feature flag.
func (r *PostgresRepository) SetFlag(ctx context.Context, flag *Flag) error {
	return r.SetFlags(ctx, []*Flag{flag})
}

// SetFlags creates or updates multiple feature flags in one transaction.
func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	now := time.Now()
	batch := &pgx.Batch{}
	for _, flag := range flags {
		valueJSON, err := json.Marshal(flag.Value)
		if err != nil {
			return fmt.Errorf("encode flag %s: %w", flag.Key, err)
		}
		batch.Queue(upsertFlagSQL, flag.Key, valueJSON, now)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

// DeleteFlag removes a feature flag by key.
func (r *PostgresRepository) DeleteFlag(ctx context.Context, key string) error {
	tag, err := r.pool.Exec(ctx, deleteFlagSQL, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrFlagNotFound
	}
	return nil
}

func scanFlag(row pgx.Row) (*Flag, error) {
	var (
		flag      Flag
		valueJSON []byte
	)
	if err := row.Scan(&flag.Key, &valueJSON, &flag.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(valueJSON, &flag.Value); err != nil {
		return nil, fmt.Errorf("decode flag %s: %w", flag.Key, err)
	}
	return &flag, nil
}

// Ensure PostgresRepository implements Repository interface.
var _ Repository = (*PostgresRepository)(nil)
