package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-api/internal/config"
	"github.com/your-org/storefront-api/internal/pkg/logger"
)

func TestNewConnection(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := &config.Config{Redis: config.RedisConfig{Host: mr.Host(), Port: mr.Port(), PoolSize: 2}}
	client, err := NewConnection(cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Health(context.Background()))
	assert.Equal(t, mr.Addr(), client.GetClient().Options().Addr)

	mr.Close()
	assert.Error(t, client.Health(context.Background()))
}

func TestJSONHelpers(t *testing.T) {
	mr := miniredis.RunT(t)
	client := Wrap(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	type entry struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	var got entry
	assert.ErrorIs(t, client.GetJSON(ctx, "catalog:missing", &got), redis.Nil)

	require.NoError(t, client.SetJSON(ctx, "catalog:a", entry{Name: "lamp", Count: 2}, time.Minute))
	require.NoError(t, client.GetJSON(ctx, "catalog:a", &got))
	assert.Equal(t, entry{Name: "lamp", Count: 2}, got)
	assert.Equal(t, time.Minute, mr.TTL("catalog:a"))

	require.NoError(t, client.Set(ctx, "catalog:b", "raw", 0))
	raw, err := client.Get(ctx, "catalog:b")
	require.NoError(t, err)
	assert.Equal(t, "raw", raw)

	require.NoError(t, client.Set(ctx, "ratelimit:x", "1", 0))
	require.NoError(t, client.DeletePrefix(ctx, "catalog:"))
	assert.False(t, mr.Exists("catalog:a"))
	assert.False(t, mr.Exists("catalog:b"))
	assert.True(t, mr.Exists("ratelimit:x"))

	require.NoError(t, client.Del(ctx, "ratelimit:x"))
	assert.False(t, mr.Exists("ratelimit:x"))
}
