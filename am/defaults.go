package am

import (
	"github.com/spf13/viper"
)

// Default values referenced outside SetDefaults
const (
	DefaultSQLitePath  = "promptvars.db"
	DefaultRedisPrefix = "promptvars"
	DefaultServerName  = "promptvars"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("storage.kind", StorageSQLite)
	v.SetDefault("storage.sqlite.path", DefaultSQLitePath)
	v.SetDefault("storage.postgres.max_connections", 10)
	v.SetDefault("storage.postgres.max_idle", 5)
	v.SetDefault("storage.postgres.conn_max_lifetime_seconds", 300)
	v.SetDefault("storage.redis.address", "localhost:6379")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.prefix", DefaultRedisPrefix)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "warn")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", "promptvars")
	v.SetDefault("metrics.address", "")

	v.SetDefault("server.name", DefaultServerName)
	v.SetDefault("server.version", "dev")
}

// BindSensitiveEnvVars explicitly binds credentials and connection strings
// to environment variables so they never need to live in a config file.
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("storage.postgres.dsn", "PROMPTVARS_POSTGRES_DSN", "DATABASE_URL")
	v.BindEnv("storage.redis.address", "PROMPTVARS_REDIS_ADDRESS")
	v.BindEnv("storage.redis.password", "PROMPTVARS_REDIS_PASSWORD")
	v.BindEnv("storage.sqlite.path", "PROMPTVARS_DB_PATH")
}
