package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// exerciseBlobStore runs the contract every BlobStore must satisfy.
func exerciseBlobStore(t *testing.T, s BlobStore, key string) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		t.Fatalf("empty store: ok=%v err=%v", ok, err)
	}

	if err := s.Set(ctx, key, []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, ok, err := s.Get(ctx, key)
	if err != nil || !ok || string(b) != `[{"id":"a"}]` {
		t.Fatalf("get after set: %q ok=%v err=%v", b, ok, err)
	}

	if err := s.Set(ctx, key, []byte(`[]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	b, _, _ = s.Get(ctx, key)
	if string(b) != `[]` {
		t.Fatalf("overwrite not visible: %q", b)
	}

	if err := s.Set(ctx, "", []byte(`[]`)); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseBlobStore(t, NewMemoryStore(), DefaultKey)
}

func TestMemoryStoreCopiesBlobs(t *testing.T) {
	s := NewMemoryStore()
	in := []byte(`[]`)
	_ = s.Set(context.Background(), "k", in)
	in[0] = 'x'
	out, _, _ := s.Get(context.Background(), "k")
	if string(out) != `[]` {
		t.Fatalf("store aliased caller buffer: %q", out)
	}
}

func TestNewMemoryStoreFromDir(t *testing.T) {
	dir := t.TempDir()
	s := NewMemoryStoreFromDir(dir, DefaultKey)
	if _, ok, _ := s.Get(context.Background(), DefaultKey); ok {
		t.Fatalf("expected no seed when file missing")
	}

	seed := `[{"id":"1","cropName":"Rice","location":"Village A","transactions":[]}]`
	if err := os.WriteFile(filepath.Join(dir, SeedFile), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s = NewMemoryStoreFromDir(dir, DefaultKey)
	b, ok, err := s.Get(context.Background(), DefaultKey)
	if err != nil || !ok || string(b) != seed {
		t.Fatalf("seed not loaded: %q ok=%v err=%v", b, ok, err)
	}
}

func TestSQLiteRepository(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "ledger.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	exerciseBlobStore(t, repo, DefaultKey)

	v, err := repo.Version(context.Background(), DefaultKey)
	if err != nil || v != 2 {
		t.Fatalf("version = %d, err=%v; want 2", v, err)
	}
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestSQLiteRepositoryReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ledger.db")
	repo, err := NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Set(context.Background(), DefaultKey, []byte(`[1]`)); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	// Migrations must be idempotent across restarts
	repo, err = NewSQLiteRepository(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	b, ok, err := repo.Get(context.Background(), DefaultKey)
	if err != nil || !ok || string(b) != `[1]` {
		t.Fatalf("data lost across reopen: %q ok=%v err=%v", b, ok, err)
	}
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	s, err := NewRedisStore(context.Background(), url, "farmprofit-test:")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	key := "blob-" + t.Name()
	defer s.client.Del(context.Background(), s.key(key))
	exerciseBlobStore(t, s, key)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	s, err := NewPostgresStore(context.Background(), url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer s.Close()
	key := "blob-" + t.Name()
	defer s.pool.Exec(context.Background(), `DELETE FROM blobs WHERE key = $1`, key)
	exerciseBlobStore(t, s, key)
}

func TestNormalizePostgresURL(t *testing.T) {
	cases := map[string]string{
		"postgresql://u:p@h:5432/db":         "postgres://u:p@h:5432/db",
		"postgres://h/db?application_name=x": "postgres://h/db?application_name=x",
		"postgres://h/db?sslmode=require":    "postgres://h/db?sslmode=require",
		"postgres://h/db":                    "postgres://h/db",
	}
	for in, want := range cases {
		if got := normalizePostgresURL(in); got != want {
			t.Fatalf("normalizePostgresURL(%q) = %q, want %q", in, got, want)
		}
	}
}
