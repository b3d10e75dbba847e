package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"DeFi-Agent/internal/auth"
)

// fakeRedis implements the handful of commands the stores use.
type fakeRedis struct {
	redis.Cmdable
	values map[string]string
	lists  map[string][]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		values: make(map[string]string),
		lists:  make(map[string][]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	cmd := redis.NewStatusCmd(ctx)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if value, ok := f.values[key]; ok {
		cmd.SetVal(value)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx)
	var n int64
	for _, key := range keys {
		if _, ok := f.values[key]; ok {
			delete(f.values, key)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

func (f *fakeRedis) GetDel(ctx context.Context, key string) *redis.StringCmd {
	cmd := f.Get(ctx, key)
	delete(f.values, key)
	return cmd
}

func (f *fakeRedis) LRange(ctx context.Context, key string, _, _ int64) *redis.StringSliceCmd {
	cmd := redis.NewStringSliceCmd(ctx)
	cmd.SetVal(append([]string(nil), f.lists[key]...))
	return cmd
}

func TestNonceStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewNonceStore(fake)

	key := auth.NonceKey("0xABC")
	require.NoError(t, store.Set(ctx, key, "n1", 5*time.Minute))
	assert.Equal(t, "wallet:nonce:0xabc", key)
	assert.Equal(t, 5*time.Minute, fake.ttls[key])

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "n1", value)

	taken, err := store.Take(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "n1", taken)
	_, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, auth.ErrNonceMissing)
	_, err = store.Take(ctx, key)
	assert.ErrorIs(t, err, auth.ErrNonceMissing)
}

func TestStreamBufferReplay(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	buffer := NewStreamBuffer(fake, 0)

	replay, err := buffer.Replay(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	fake.lists[framesKey("s1")] = []string{`{"type":"start"}`, `{"type":"text-delta","delta":"hi"}`}
	replay, err = buffer.Replay(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.False(t, replay.Done)
	assert.Len(t, replay.Frames, 2)

	require.NoError(t, buffer.Complete(ctx, "s1"))
	assert.Equal(t, defaultStreamTTL, fake.ttls[doneKey("s1")])
	replay, err = buffer.Replay(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, replay.Done)
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(context.Background(), "")
	assert.Error(t, err)
	_, err = NewClient(context.Background(), "http://not-redis")
	assert.Error(t, err)
}
