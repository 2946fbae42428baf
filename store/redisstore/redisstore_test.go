package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/promptvars/am"
	"github.com/teranos/promptvars/errors"
	"github.com/teranos/promptvars/store"
	"github.com/teranos/promptvars/store/redisstore"
	"github.com/teranos/promptvars/store/storetest"
	"github.com/teranos/promptvars/types"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) store.Store {
		_, client := newClient(t)
		return redisstore.New(client, "test", nil, store.WithClock(now))
	})
}

func TestKeyLayout(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	s := redisstore.New(client, "pv", nil)

	_, err := s.Save(ctx, &types.Template{ID: "t1", Name: "Greeting", Template: "Hi there"})
	require.NoError(t, err)
	_, err = s.Save(ctx, &types.Template{ID: "t1", Name: "Greeting", Template: "Hello there"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("pv:template:t1"))
	members, err := mr.Members("pv:templates")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, members)
	versions, err := mr.List("pv:versions:t1")
	require.NoError(t, err)
	assert.Len(t, versions, 2)

	deleted, err := s.Delete(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, mr.Exists("pv:template:t1"))
	assert.False(t, mr.Exists("pv:versions:t1"))
}

func TestPrefixesIsolateStores(t *testing.T) {
	ctx := context.Background()
	_, client := newClient(t)
	a := redisstore.New(client, "a", nil)
	b := redisstore.New(client, "b", nil)

	_, err := a.Save(ctx, &types.Template{ID: "t1", Template: "x"})
	require.NoError(t, err)

	all, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDanglingIndexEntryIsSkipped(t *testing.T) {
	ctx := context.Background()
	mr, client := newClient(t)
	s := redisstore.New(client, "pv", nil)

	_, err := s.Save(ctx, &types.Template{ID: "t1", Template: "x"})
	require.NoError(t, err)
	_, err = mr.SAdd("pv:templates", "ghost")
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "t1", all[0].ID)
}

func TestUnavailableServerIsBackendError(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	s := redisstore.New(client, "pv", nil)
	mr.Close()

	_, _, err = s.Get(context.Background(), "t1")
	require.Error(t, err)
	assert.True(t, errors.IsBackendError(err))
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	mr, _ := newClient(t)

	client, err := redisstore.Open(ctx, am.RedisConfig{Address: mr.Addr()}, nil)
	require.NoError(t, err)
	client.Close()

	_, err = redisstore.Open(ctx, am.RedisConfig{}, nil)
	assert.True(t, errors.IsInvalidRequestError(err))
}
