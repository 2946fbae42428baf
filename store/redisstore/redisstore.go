// Package redisstore keeps templates in Redis.
//
// Keys, all under a configurable prefix:
//
//	<prefix>:templates          set of template ids
//	<prefix>:template:<id>      JSON template record
//	<prefix>:versions:<id>      list of JSON versions, oldest first
package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/types"
)

// Open connects to Redis and verifies the connection
func Open(ctx context.Context, cfg am.RedisConfig, log *zap.SugaredLogger) (*redis.Client, error) {
	if cfg.Address == "" {
		return nil, errors.NewInvalidRequestError("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, errors.Wrapf(err, "redis ping failed at %s", cfg.Address)
	}

	if log != nil {
		log.Infow("Redis connection ready", "address", cfg.Address, "db", cfg.DB)
	}
	return client, nil
}

// Backend stores templates as JSON values
type Backend struct {
	client redis.Cmdable
	prefix string
	log    *zap.SugaredLogger
}

// NewBackend uses client with keys under prefix
func NewBackend(client redis.Cmdable, prefix string, log *zap.SugaredLogger) *Backend {
	if prefix == "" {
		prefix = am.DefaultRedisPrefix
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Backend{client: client, prefix: prefix, log: log}
}

// New returns a Store over client
func New(client redis.Cmdable, prefix string, log *zap.SugaredLogger, opts ...store.Option) *store.Versioned {
	return store.NewVersioned(NewBackend(client, prefix, log), opts...)
}

func (b *Backend) indexKey() string {
	return b.prefix + ":templates"
}

func (b *Backend) templateKey(id string) string {
	return b.prefix + ":template:" + id
}

func (b *Backend) versionsKey(id string) string {
	return b.prefix + ":versions:" + id
}

func (b *Backend) GetTemplate(ctx context.Context, id string) (*types.Template, bool, error) {
	data, err := b.client.Get(ctx, b.templateKey(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "failed to read template %s", id)
	}

	var t types.Template
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false, errors.Wrapf(err, "failed to decode template %s", id)
	}
	return &t, true, nil
}

// PutTemplate writes the record and its index entry in one MULTI block
func (b *Backend) PutTemplate(ctx context.Context, t *types.Template) error {
	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrapf(err, "failed to encode template %s", t.ID)
	}

	_, err = b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, b.templateKey(t.ID), data, 0)
		pipe.SAdd(ctx, b.indexKey(), t.ID)
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, "failed to write template %s", t.ID)
	}
	return nil
}

func (b *Backend) DeleteTemplate(ctx context.Context, id string) (bool, error) {
	var removed *redis.IntCmd
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, b.templateKey(id))
		pipe.Del(ctx, b.versionsKey(id))
		pipe.SRem(ctx, b.indexKey(), id)
		return nil
	})
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete template %s", id)
	}

	b.log.Debugw("Deleted template", "template_id", id, "deleted", removed.Val() > 0)
	return removed.Val() > 0, nil
}

func (b *Backend) ListTemplates(ctx context.Context) ([]*types.Template, error) {
	ids, err := b.client.SMembers(ctx, b.indexKey()).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read template index")
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.templateKey(id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read templates")
	}

	out := make([]*types.Template, 0, len(values))
	for i, value := range values {
		raw, ok := value.(string)
		if !ok {
			// Indexed but the record is gone; a concurrent delete
			b.log.Debugw("Skipping dangling index entry", "template_id", ids[i])
			continue
		}
		var t types.Template
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, errors.Wrapf(err, "failed to decode template %s", ids[i])
		}
		out = append(out, &t)
	}
	return out, nil
}

// MaxVersion scans the stored versions instead of trusting the list length
func (b *Backend) MaxVersion(ctx context.Context, templateID string) (int, error) {
	versions, err := b.ListVersions(ctx, templateID)
	if err != nil {
		return 0, err
	}
	max := 0
	for _, v := range versions {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max, nil
}

func (b *Backend) AppendVersion(ctx context.Context, v *types.Version) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "failed to encode version of %s", v.TemplateID)
	}
	if err := b.client.RPush(ctx, b.versionsKey(v.TemplateID), data).Err(); err != nil {
		return errors.Wrapf(err, "failed to append version %d of %s", v.VersionNumber, v.TemplateID)
	}

	b.log.Debugw("Appended template version",
		"template_id", v.TemplateID,
		"version_number", v.VersionNumber,
	)
	return nil
}

func (b *Backend) GetVersion(ctx context.Context, templateID, versionID string) (*types.Version, bool, error) {
	versions, err := b.ListVersions(ctx, templateID)
	if err != nil {
		return nil, false, err
	}
	for _, v := range versions {
		if v.VersionID == versionID {
			return v, true, nil
		}
	}
	return nil, false, nil
}

func (b *Backend) ListVersions(ctx context.Context, templateID string) ([]*types.Version, error) {
	raw, err := b.client.LRange(ctx, b.versionsKey(templateID), 0, -1).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read versions of %s", templateID)
	}

	out := make([]*types.Version, 0, len(raw))
	for _, item := range raw {
		var v types.Version
		if err := json.Unmarshal([]byte(item), &v); err != nil {
			return nil, errors.Wrapf(err, "failed to decode version of %s", templateID)
		}
		out = append(out, &v)
	}
	return out, nil
}

var _ store.Backend = (*Backend)(nil)
