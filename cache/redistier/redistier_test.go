package redistier

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb, err := NewClient(Config{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })

	return rdb, mr
}

func TestNewClient(t *testing.T) {
	t.Run("requires address", func(t *testing.T) {
		_, err := NewClient(Config{})
		assert.ErrorIs(t, err, ErrNoAddress)
	})

	t.Run("fails when unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		_, err = NewClient(Config{Address: addr, DialTimeout: 200 * time.Millisecond})
		assert.Error(t, err)
	})

	t.Run("applies defaults", func(t *testing.T) {
		cfg := Config{Address: "x"}
		cfg.applyDefaults()
		assert.Equal(t, 10, cfg.PoolSize)
		assert.Equal(t, "qc:", cfg.Prefix)
		assert.Equal(t, 5*time.Second, cfg.DialTimeout)
	})
}

func TestTier(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	tier := NewTier(rdb, "test:")
	ctx := context.Background()

	t.Run("miss", func(t *testing.T) {
		v, ok, err := tier.Get(ctx, "absent")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Nil(t, v)
	})

	t.Run("set get delete", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, "k", []byte("payload"), time.Minute))
		assert.True(t, mr.Exists("test:e:k"))
		assert.Equal(t, time.Minute, mr.TTL("test:e:k"))

		v, ok, err := tier.Get(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, []byte("payload"), v)

		require.NoError(t, tier.Delete(ctx, "k"))
		_, ok, err = tier.Get(ctx, "k")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, tier.Delete(ctx, "k"), "delete is idempotent")
	})

	t.Run("expiry", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, "short", []byte("v"), time.Second))
		mr.FastForward(2 * time.Second)
		_, ok, err := tier.Get(ctx, "short")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("non-positive ttl stores nothing", func(t *testing.T) {
		require.NoError(t, tier.Set(ctx, "zero", []byte("v"), 0))
		assert.False(t, mr.Exists("test:e:zero"))
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, tier.Ping(ctx))
	})

	t.Run("fault surfaces as error", func(t *testing.T) {
		mr.SetError("LOADING")
		defer mr.SetError("")
		_, _, err := tier.Get(ctx, "k")
		assert.Error(t, err)
	})
}

func TestTagIndex(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	idx := NewTagIndex(rdb, "")
	ctx := context.Background()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, idx.Attach(ctx, "k1", []string{"users", "tenant:1"}, exp))
	require.NoError(t, idx.Attach(ctx, "k2", []string{"users"}, exp))
	require.NoError(t, idx.Attach(ctx, "k3", nil, exp))

	keys, err := idx.KeysForTag(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, keys)

	members, err := mr.Members("qc:k:k1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users", "tenant:1"}, members)

	t.Run("sets carry a ttl", func(t *testing.T) {
		assert.Greater(t, mr.TTL("qc:t:users"), 59*time.Minute)
		assert.Greater(t, mr.TTL("qc:k:k1"), 59*time.Minute)
	})

	t.Run("detach", func(t *testing.T) {
		require.NoError(t, idx.Detach(ctx, "k2"))
		keys, err := idx.KeysForTag(ctx, "users")
		require.NoError(t, err)
		assert.Equal(t, []string{"k1"}, keys)
		assert.False(t, mr.Exists("qc:k:k2"))

		require.NoError(t, idx.Detach(ctx, "k1"))
		assert.False(t, mr.Exists("qc:t:tenant:1"))

		assert.NoError(t, idx.Detach(ctx, "never-attached"))
	})
}

func TestTagIndex_Expiry(t *testing.T) {
	rdb, mr := setupTestRedis(t)
	idx := NewTagIndex(rdb, "")
	ctx := context.Background()

	start := time.Now()
	idx.now = func() time.Time { return start }

	require.NoError(t, idx.Attach(ctx, "short", []string{"t"}, start.Add(time.Second)))
	require.NoError(t, idx.Attach(ctx, "long", []string{"t"}, start.Add(time.Minute)))
	require.NoError(t, idx.Attach(ctx, "gone", []string{"t"}, start.Add(-time.Second)))

	t.Run("set ttl covers the longest member", func(t *testing.T) {
		ttl := mr.TTL("qc:t:t")
		assert.Greater(t, ttl, 59*time.Second)
		assert.LessOrEqual(t, ttl, time.Minute)
	})

	t.Run("expired members are trimmed on read", func(t *testing.T) {
		idx.now = func() time.Time { return start.Add(2 * time.Second) }
		keys, err := idx.KeysForTag(ctx, "t")
		require.NoError(t, err)
		assert.Equal(t, []string{"long"}, keys)
	})

	t.Run("unread sets expire on their own", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		assert.False(t, mr.Exists("qc:t:t"))
		assert.False(t, mr.Exists("qc:k:long"))
	})
}

func TestInvalidator(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sender := NewInvalidator(rdb, "", nil)
	receiver := NewInvalidator(rdb, "", nil)
	assert.NotEqual(t, sender.Origin(), receiver.Origin())

	got := make(chan []string, 4)
	stop, err := receiver.Subscribe(ctx, func(_ context.Context, keys []string) { got <- keys })
	require.NoError(t, err)
	defer func() { _ = stop() }()

	// Messages from the receiver's own origin are ignored.
	require.NoError(t, receiver.Publish(ctx, []string{"self"}))
	require.NoError(t, sender.Publish(ctx, []string{"a", "b"}))

	select {
	case keys := <-got:
		assert.Equal(t, []string{"a", "b"}, keys)
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation not delivered")
	}

	select {
	case keys := <-got:
		t.Fatalf("unexpected delivery %v", keys)
	case <-time.After(50 * time.Millisecond):
	}

	assert.NoError(t, sender.Publish(ctx, nil), "empty publish is a no-op")
}

func TestInvalidator_MalformedPayload(t *testing.T) {
	rdb, _ := setupTestRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inv := NewInvalidator(rdb, "", nil)
	got := make(chan []string, 1)
	stop, err := inv.Subscribe(ctx, func(_ context.Context, keys []string) { got <- keys })
	require.NoError(t, err)
	defer func() { _ = stop() }()

	require.NoError(t, rdb.Publish(ctx, "qc:invalidate", "not json").Err())
	require.NoError(t, NewInvalidator(rdb, "", nil).Publish(ctx, []string{"ok"}))

	select {
	case keys := <-got:
		assert.Equal(t, []string{"ok"}, keys)
	case <-time.After(2 * time.Second):
		t.Fatal("valid message after malformed one not delivered")
	}
}
