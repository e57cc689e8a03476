package redis

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/smallbiznis/rateboard/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClientSkippedForMemoryDriver(t *testing.T) {
	client, err := NewClient(nil, config.Config{Cache: config.CacheConfig{Driver: config.CacheDriverMemory}})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewClientPings(t *testing.T) {
	s := miniredis.RunT(t)
	client, err := NewClient(nil, config.Config{Cache: config.CacheConfig{Driver: config.CacheDriverRedis, RedisAddr: s.Addr()}})
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()

	s.Close()
	_, err = NewClient(nil, config.Config{Cache: config.CacheConfig{Driver: config.CacheDriverRedis, RedisAddr: s.Addr()}})
	assert.Error(t, err)
}
