package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const createBlobsTable = `
CREATE TABLE IF NOT EXISTS blobs (
    key        TEXT PRIMARY KEY,
    value      BYTEA NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresStore keeps blobs in a BYTEA column so they round-trip byte for byte.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ BlobStore = (*PostgresStore)(nil)

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	databaseURL = normalizePostgresURL(databaseURL)

	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(connectCtx, createBlobsTable); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create blobs table: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

// normalizePostgresURL rewrites postgresql:// to postgres://. TLS settings
// are left to the URL and to pgx's defaults.
func normalizePostgresURL(u string) string {
	if strings.HasPrefix(u, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(u, "postgresql://")
	}
	return u
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	var value []byte
	err := s.pool.QueryRow(ctx, `SELECT value FROM blobs WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, key string, blob []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO blobs (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			version = blobs.version + 1,
			updated_at = NOW()`, key, blob)
	if err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
