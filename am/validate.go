package am

import (
	"slices"

	"github.com/teranos/promptvars/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if !slices.Contains(StorageKinds, c.Storage.Kind) {
		return errors.NewInvalidRequestError("storage.kind must be one of %v, got %q", StorageKinds, c.Storage.Kind)
	}

	switch c.Storage.Kind {
	case StorageSQLite:
		if c.Storage.SQLite.Path == "" {
			return errors.New("storage.sqlite.path cannot be empty when storage.kind is sqlite")
		}
	case StoragePostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.WithHint(
				errors.New("storage.postgres.dsn cannot be empty when storage.kind is postgres"),
				"set PROMPTVARS_POSTGRES_DSN or DATABASE_URL")
		}
	case StorageRedis:
		if c.Storage.Redis.Address == "" {
			return errors.New("storage.redis.address cannot be empty when storage.kind is redis")
		}
	}

	if c.Storage.Postgres.MaxConnections < 0 {
		return errors.Newf("storage.postgres.max_connections must be >= 0, got %d", c.Storage.Postgres.MaxConnections)
	}
	if c.Storage.Postgres.MaxIdle < 0 {
		return errors.Newf("storage.postgres.max_idle must be >= 0, got %d", c.Storage.Postgres.MaxIdle)
	}
	if c.Storage.Redis.DB < 0 {
		return errors.Newf("storage.redis.db must be >= 0, got %d", c.Storage.Redis.DB)
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return errors.Newf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.New("metrics.namespace cannot be empty when metrics are enabled")
	}

	return nil
}
