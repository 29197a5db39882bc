// Package backend builds the blob store selected by configuration.
package backend

import (
	"context"

	"farmprofit/internal/storage"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult is the selected store and how to close it.
type BackendResult struct {
	Store   storage.BlobStore
	Cleanup CleanupFunc
}

// Close runs Cleanup if there is one.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Ping checks the store when it supports health checks.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Store.(storage.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

type Config struct {
	Type BackendType

	// memory
	DataDirectory string
	StoreKey      string

	SQLiteDBPath string
	RedisURL     string
	RedisPrefix  string
	DatabaseURL  string
}

type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	RedisBackend    BackendType = "redis"
	PostgresBackend BackendType = "postgres"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case MemoryBackend, SQLiteBackend, RedisBackend, PostgresBackend:
		return true
	default:
		return false
	}
}
