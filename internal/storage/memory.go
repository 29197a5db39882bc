package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
)

// SeedFile is read from the data directory by NewMemoryStoreFromDir.
const SeedFile = "seed_accounts.json"

// MemoryStore keeps blobs in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

var _ BlobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// NewMemoryStoreFromDir seeds key with <dir>/seed_accounts.json when present.
func NewMemoryStoreFromDir(dir, key string) *MemoryStore {
	s := NewMemoryStore()
	b, err := os.ReadFile(filepath.Join(dir, SeedFile))
	if err == nil && len(b) > 0 {
		s.blobs[key] = b
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), b...), true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, blob []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = append([]byte(nil), blob...)
	return nil
}
