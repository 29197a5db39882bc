package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// SQLiteRepository keeps blobs in a single SQLite table.
type SQLiteRepository struct {
	db *sql.DB
}

var _ BlobStore = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Get implements BlobStore
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, true, nil
}

// Set implements BlobStore
func (r *SQLiteRepository) Set(ctx context.Context, key string, blob []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blobs (key, value, version, updated_at)
		VALUES (?, ?, 1, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			version = blobs.version + 1,
			updated_at = CURRENT_TIMESTAMP`, key, blob)
	if err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}

	slog.DebugContext(ctx, "Blob saved to SQLite", "key", key, "size", len(blob))
	return nil
}

// Version returns how many times key has been written, 0 when absent.
func (r *SQLiteRepository) Version(ctx context.Context, key string) (int64, error) {
	var version int64
	err := r.db.QueryRowContext(ctx, `SELECT version FROM blobs WHERE key = ?`, key).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get blob version %s: %w", key, err)
	}
	return version, nil
}
