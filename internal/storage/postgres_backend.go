package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBackend implements Backend against a single key/value table,
// letting an operator point the same worker-sharded pool at Postgres
// instead of the local filesystem. Connection pooling follows the
// teacher's pgxpool setup (internal/infrastructure/database/postgres).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend opens a pool against dsn and ensures the kv_store
// table exists.
func NewPostgresBackend(ctx context.Context, dsn string) (*PostgresBackend, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: parse postgres dsn: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("storage: create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("storage: ping postgres: %w", err)
	}

	backend := &PostgresBackend{pool: pool}
	if err := backend.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return backend, nil
}

func (p *PostgresBackend) ensureSchema(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			folder     TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			PRIMARY KEY (folder, key)
		)
	`)
	if err != nil {
		return fmt.Errorf("storage: ensure kv_store schema: %w", err)
	}
	return nil
}

func (p *PostgresBackend) Put(ctx context.Context, folder, key string, value []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO kv_store (folder, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (folder, key) DO UPDATE SET value = $3, updated_at = now()
	`, folder, key, value)
	if err != nil {
		return fmt.Errorf("storage: put %s/%s: %w", folder, key, err)
	}
	return nil
}

func (p *PostgresBackend) Get(ctx context.Context, folder, key string) ([]byte, bool, error) {
	var value []byte
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE folder = $1 AND key = $2`, folder, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("storage: get %s/%s: %w", folder, key, err)
	}
	return value, true, nil
}

// Close releases the connection pool.
func (p *PostgresBackend) Close() {
	p.pool.Close()
}
