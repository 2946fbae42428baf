// Package am ("as mentioned") loads promptvars configuration from TOML files
// and PROMPTVARS_* environment variables.
package am

// Config represents the promptvars configuration
type Config struct {
	Storage StorageConfig `mapstructure:"storage" toml:"storage"`
	Log     LogConfig     `mapstructure:"log" toml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
	Server  ServerConfig  `mapstructure:"server" toml:"server"`
}

// Storage backend kinds accepted in storage.kind
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageRedis    = "redis"
)

// StorageKinds lists every supported storage.kind value
var StorageKinds = []string{StorageMemory, StorageSQLite, StoragePostgres, StorageRedis}

// StorageConfig selects and configures the template store backend
type StorageConfig struct {
	Kind     string         `mapstructure:"kind" toml:"kind"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite" toml:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres" toml:"postgres"`
	Redis    RedisConfig    `mapstructure:"redis" toml:"redis"`
}

// SQLiteConfig configures the local SQLite database
type SQLiteConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// PostgresConfig configures the PostgreSQL connection pool
type PostgresConfig struct {
	DSN                    string `mapstructure:"dsn" toml:"dsn"`
	MaxConnections         int    `mapstructure:"max_connections" toml:"max_connections"`
	MaxIdle                int    `mapstructure:"max_idle" toml:"max_idle"`
	ConnMaxLifetimeSeconds int    `mapstructure:"conn_max_lifetime_seconds" toml:"conn_max_lifetime_seconds"`
}

// RedisConfig configures the Redis client
type RedisConfig struct {
	Address  string `mapstructure:"address" toml:"address"`
	Password string `mapstructure:"password" toml:"password,omitempty"`
	DB       int    `mapstructure:"db" toml:"db"`
	Prefix   string `mapstructure:"prefix" toml:"prefix"` // key namespace, e.g. "promptvars:tenant-a"
}

// LogConfig configures the global logger
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json"`
	Level string `mapstructure:"level" toml:"level"` // debug, info, warn, error
}

// MetricsConfig configures Prometheus instrumentation of the store
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled" toml:"enabled"`
	Namespace string `mapstructure:"namespace" toml:"namespace"`
	Address   string `mapstructure:"address" toml:"address"` // /metrics listener used by serve, empty disables it
}

// ServerConfig configures the stdio tool server identity
type ServerConfig struct {
	Name    string `mapstructure:"name" toml:"name"`
	Version string `mapstructure:"version" toml:"version"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
