package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewRedisCache(client, "payment")
	ctx := context.Background()

	key := c.GenerateKey("charge", "r-1")
	assert.Equal(t, "payment:charge:r-1", key)

	got, err := c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got, "a miss is not an error")

	require.NoError(t, c.Set(ctx, key, "approved", time.Minute))
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "approved", got)

	mr.FastForward(2 * time.Minute)
	got, err = c.Get(ctx, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}
