package db

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client, err := NewRedisClient(RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	defer client.Close()

	addr := mr.Addr()
	mr.Close()
	_, err = NewRedisClient(RedisConfig{Addr: addr})
	assert.Error(t, err)

	_, err = NewRedisClient(RedisConfig{})
	assert.Error(t, err)
}
