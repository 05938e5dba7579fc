package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ares-dev-tech/dashboard/internal/config"
)

func TestOpenCache_Memory(t *testing.T) {
	c, closeFn, err := OpenCache(context.Background(), config.CacheConfig{MemorySize: 10})
	require.NoError(t, err)
	defer closeFn()
	_, ok := c.(*MemoryCache)
	assert.True(t, ok)
}

func TestOpenCache_RedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, _, err := OpenCache(ctx, config.CacheConfig{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}
