package config

import (
	"os"
	"strings"
)

const (
	storeBackendEnv = "STORE_BACKEND"
	databaseURLEnv  = "DATABASE_URL"
)

type StoreBackend string

const (
	StoreRedis    StoreBackend = "redis"
	StorePostgres StoreBackend = "postgres"
)

type StoreConfig struct {
	Backend     StoreBackend
	DatabaseURL string
}

func LoadStoreConfig() *StoreConfig {
	backend := StoreBackend(strings.ToLower(os.Getenv(storeBackendEnv)))
	if backend == "" {
		backend = StoreRedis
	}

	return &StoreConfig{
		Backend:     backend,
		DatabaseURL: os.Getenv(databaseURLEnv),
	}
}

func (c *StoreConfig) Validate() error {
	switch c.Backend {
	case StoreRedis:
		return nil
	case StorePostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLMissing
		}
		return nil
	default:
		return ErrUnknownStoreBackend
	}
}
