package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/errors"
)

// SQLiteBusyTimeoutMS is how long SQLite waits on a locked database
const SQLiteBusyTimeoutMS = 5000

// Open opens a SQLite database at the specified path with optimized settings.
// If logger is provided, logs database operations; otherwise operates silently.
func Open(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	if logger != nil {
		logger.Debugw("Opening database", "path", path, "dialect", SQLite)
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// PRAGMAs below are per connection
	db.SetMaxOpenConns(1)

	// Enable WAL mode for concurrent reads during writes
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable WAL mode")
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to enable foreign keys")
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to set busy timeout")
	}

	if logger != nil {
		logger.Infow("Database opened successfully",
			"path", path,
			"wal_mode", true,
			"foreign_keys", true,
		)
	}

	return db, nil
}

// OpenWithMigrations opens a SQLite database and brings its schema up to date
func OpenWithMigrations(path string, logger *zap.SugaredLogger) (*sql.DB, error) {
	db, err := Open(path, logger)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open database at %s", path)
	}

	if err := Migrate(db, SQLite, logger); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to migrate database at %s", path)
	}

	return db, nil
}

// OpenPostgres opens a PostgreSQL connection pool, verifies it with a ping
// and runs migrations.
func OpenPostgres(ctx context.Context, cfg am.PostgresConfig, logger *zap.SugaredLogger) (*sql.DB, error) {
	if cfg.DSN == "" {
		return nil, errors.NewInvalidRequestError("postgres dsn is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres")
	}

	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.ConnMaxLifetimeSeconds > 0 {
		lifetime := time.Duration(cfg.ConnMaxLifetimeSeconds) * time.Second
		db.SetConnMaxLifetime(lifetime)
		db.SetConnMaxIdleTime(lifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to ping postgres")
	}

	if err := Migrate(db, Postgres, logger); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to migrate postgres")
	}

	if logger != nil {
		logger.Infow("Postgres connection pool ready",
			"max_connections", cfg.MaxConnections,
			"max_idle", cfg.MaxIdle,
		)
	}

	return db, nil
}
