package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamaai/lama-api/pkg/config"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestFixedWindowAllowCountsWithinWindow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCommands()
	client := &Client{cmds: mock, now: fixedClock(time.Unix(1_700_000_010, 0))}

	for i := int64(1); i <= 2; i++ {
		allowed, count, err := client.FixedWindowAllow(ctx, "chat_write:u1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, i, count)
	}
	allowed, count, err := client.FixedWindowAllow(ctx, "chat_write:u1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(3), count)

	require.Len(t, mock.expires, 1, "expire is only set on the first hit")
	assert.Equal(t, 31*time.Second, mock.expires[0].ttl)
}

func TestFixedWindowAllowStartsFreshInNextWindow(t *testing.T) {
	ctx := context.Background()
	mock := newMockCommands()
	start := time.Unix(1_700_000_040, 0)
	client := &Client{cmds: mock, now: fixedClock(start)}

	_, _, err := client.FixedWindowAllow(ctx, "ip:10.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	allowed, _, err := client.FixedWindowAllow(ctx, "ip:10.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)

	client.now = fixedClock(start.Add(time.Minute))
	allowed, count, err := client.FixedWindowAllow(ctx, "ip:10.0.0.1", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, int64(1), count)
}

func TestSetNXAndDel(t *testing.T) {
	ctx := context.Background()
	client := newClient(newMockCommands(), nil)
	key := client.LockKey("chat-index-reconcile")

	ok, err := client.SetNX(ctx, key, "owner-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = client.SetNX(ctx, key, "owner-2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	owner, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "owner-1", owner)

	require.NoError(t, client.Del(ctx, key))
	_, err = client.Get(ctx, key)
	assert.ErrorIs(t, err, redis.Nil)
	assert.NoError(t, client.Del(ctx))
}

func TestSetOverwrites(t *testing.T) {
	ctx := context.Background()
	client := newClient(newMockCommands(), nil)

	require.NoError(t, client.Set(ctx, "k", "in-flight", time.Minute))
	require.NoError(t, client.Set(ctx, "k", "done", time.Hour))

	got, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "done", got)
}

func TestUninitializedClient(t *testing.T) {
	client := &Client{}
	ctx := context.Background()

	assert.ErrorIs(t, client.Ping(ctx), errNotInitialized)
	_, _, err := client.FixedWindowAllow(ctx, "s", 1, time.Minute)
	assert.ErrorIs(t, err, errNotInitialized)
	assert.NoError(t, client.Close())
}

func TestKeyBuilders(t *testing.T) {
	client := &Client{}
	at := time.Unix(1_700_000_010, 0)

	assert.Equal(t, "lama:idempotency:u1|POST|/api/chats:k1", client.IdempotencyKey("u1|POST|/api/chats", "k1"))
	assert.Equal(t, "lama:idempotency:k1", client.IdempotencyKey("", "k1"))
	assert.Equal(t, "lama:rate_limit:chat_write:u1:1699999980", client.RateLimitKey("chat_write:u1", at, time.Minute))
	assert.Equal(t, "lama:lock:chat-index-reconcile", client.LockKey("chat-index-reconcile"))
}

func TestOptionsFromConfig(t *testing.T) {
	_, err := optionsFromConfig(config.RedisConfig{})
	assert.Error(t, err)

	opts, err := optionsFromConfig(config.RedisConfig{URL: "redis://localhost:6379/2", PoolSize: 7, DialTimeout: 3 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, 7, opts.PoolSize)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	opts, err = optionsFromConfig(config.RedisConfig{Address: "cache:6379", Password: "pw", DB: 4})
	require.NoError(t, err)
	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 4, opts.DB)
}

type expireCall struct {
	key string
	ttl time.Duration
}

type mockCommands struct {
	data     map[string]string
	counters map[string]int64
	expires  []expireCall
}

func newMockCommands() *mockCommands {
	return &mockCommands{data: map[string]string{}, counters: map[string]int64{}}
}

func (m *mockCommands) Ping(context.Context) *redis.StatusCmd {
	return redis.NewStatusResult("PONG", nil)
}

func (m *mockCommands) Set(_ context.Context, key string, value any, _ time.Duration) *redis.StatusCmd {
	m.data[key] = fmt.Sprint(value)
	return redis.NewStatusResult("OK", nil)
}

func (m *mockCommands) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := m.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (m *mockCommands) SetNX(_ context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	if _, exists := m.data[key]; exists {
		return redis.NewBoolResult(false, nil)
	}
	m.data[key] = fmt.Sprint(value)
	return redis.NewBoolResult(true, nil)
}

func (m *mockCommands) Incr(_ context.Context, key string) *redis.IntCmd {
	m.counters[key]++
	return redis.NewIntResult(m.counters[key], nil)
}

func (m *mockCommands) Expire(_ context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	m.expires = append(m.expires, expireCall{key: key, ttl: ttl})
	return redis.NewBoolResult(true, nil)
}

func (m *mockCommands) Del(_ context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(m.data, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}
