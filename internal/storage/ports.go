package storage

import (
	"context"
	"errors"
)

// DefaultKey is the key the ledger snapshot is stored under.
const DefaultKey = "accounts"

var ErrEmptyKey = errors.New("blob key cannot be empty")

// BlobStore is a key-value store of opaque JSON documents.
type BlobStore interface {
	// Get returns the blob stored under key; ok is false when nothing is stored.
	Get(ctx context.Context, key string) (blob []byte, ok bool, err error)
	// Set replaces the blob stored under key.
	Set(ctx context.Context, key string, blob []byte) error
}

// Pinger is implemented by stores backed by a remote service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Versioner is implemented by stores that count writes per key.
type Versioner interface {
	Version(ctx context.Context, key string) (int64, error)
}
