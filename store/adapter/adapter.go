// Package adapter builds the configured template store.
package adapter

import (
	"context"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/db"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/store/redisstore"
	"github.com/teranos/promptvars/store/sqlstore"
)

// Options tune how New assembles the store
type Options struct {
	Logger *zap.SugaredLogger
	// Registerer receives the store metrics when metrics are enabled.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer   prometheus.Registerer
	StoreOptions []store.Option
}

// Handle owns a store and the connection behind it
type Handle struct {
	Store store.Store
	Kind  string
	close func() error
}

// Close releases the backend connection
func (h *Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// New opens the backend named by cfg.Storage.Kind. An unknown kind is an
// invalid request. With metrics enabled the store is wrapped in
// store.Instrumented.
func New(ctx context.Context, cfg *am.Config, opts Options) (*Handle, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	kind := strings.ToLower(strings.TrimSpace(cfg.Storage.Kind))
	var (
		s     store.Store
		close func() error
	)

	switch kind {
	case am.StorageMemory:
		s = store.NewMemory(opts.StoreOptions...)

	case am.StorageSQLite:
		path := cfg.Storage.SQLite.Path
		if path == "" {
			path = am.DefaultSQLitePath
		}
		conn, err := db.OpenWithMigrations(path, log)
		if err != nil {
			return nil, errors.WrapBackend("open sqlite store", err)
		}
		s = sqlstore.New(conn, db.SQLite, log, opts.StoreOptions...)
		close = conn.Close

	case am.StoragePostgres:
		conn, err := db.OpenPostgres(ctx, cfg.Storage.Postgres, log)
		if err != nil {
			if errors.IsInvalidRequestError(err) {
				return nil, err
			}
			return nil, errors.WrapBackend("open postgres store", err)
		}
		s = sqlstore.New(conn, db.Postgres, log, opts.StoreOptions...)
		close = conn.Close

	case am.StorageRedis:
		client, err := redisstore.Open(ctx, cfg.Storage.Redis, log)
		if err != nil {
			if errors.IsInvalidRequestError(err) {
				return nil, err
			}
			return nil, errors.WrapBackend("open redis store", err)
		}
		s = redisstore.New(client, cfg.Storage.Redis.Prefix, log, opts.StoreOptions...)
		close = client.Close

	default:
		return nil, errors.WithHint(
			errors.NewInvalidRequestError("unknown storage kind %q", cfg.Storage.Kind),
			"storage.kind must be one of: "+strings.Join(am.StorageKinds, ", "))
	}

	if cfg.Metrics.Enabled {
		reg := opts.Registerer
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		s = store.NewInstrumented(s, kind, log, store.NewMetrics(cfg.Metrics.Namespace, reg))
	}

	log.Infow("Template store ready", "backend", kind, "metrics", cfg.Metrics.Enabled)
	return &Handle{Store: s, Kind: kind, close: close}, nil
}
