package backend

import (
	"fmt"

	"farmprofit/internal/config"
)

// DefaultRedisPrefix namespaces ledger keys in a shared Redis.
const DefaultRedisPrefix = "farmprofit:"

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type:          backendType,
		DataDirectory: appConfig.DataDirectory,
		StoreKey:      appConfig.StoreKey,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
		RedisURL:      appConfig.RedisURL,
		RedisPrefix:   DefaultRedisPrefix,
		DatabaseURL:   appConfig.DatabaseURL,
	}, nil
}

func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
	case RedisBackend:
		if c.RedisURL == "" {
			return fmt.Errorf("Redis URL is required for redis backend")
		}
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return fmt.Errorf("database URL is required for postgres backend")
		}
	case MemoryBackend:
		// DataDirectory is optional; without it the store starts empty
	}
	return nil
}
