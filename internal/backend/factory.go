package backend

import (
	"context"
	"fmt"

	"farmprofit/internal/log"
	"farmprofit/internal/storage"
)

type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.Default()
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case RedisBackend:
		return f.createRedisBackend(ctx, config)
	case PostgresBackend:
		return f.createPostgresBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{Store: repo, Cleanup: repo.Close}, nil
}

func (f *DefaultFactory) createRedisBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewRedisStore(ctx, config.RedisURL, config.RedisPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis store: %w", err)
	}
	f.logger.Info("Initialized Redis backend", "prefix", config.RedisPrefix)
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createPostgresBackend(ctx context.Context, config Config) (*BackendResult, error) {
	store, err := storage.NewPostgresStore(ctx, config.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Postgres store: %w", err)
	}
	f.logger.Info("Initialized Postgres backend")
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	var store *storage.MemoryStore
	if config.DataDirectory != "" {
		store = storage.NewMemoryStoreFromDir(config.DataDirectory, config.StoreKey)
	} else {
		store = storage.NewMemoryStore()
	}
	f.logger.Info("Initialized memory backend", "data_dir", config.DataDirectory)
	return &BackendResult{Store: store}, nil
}
