package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
)

func TestInitRedis_Connects(t *testing.T) {
	mr := miniredis.RunT(t)

	client := InitRedis(context.Background(), mr.Addr())
	defer CloseRedis()

	assert.NotNil(t, client)
	assert.Same(t, client, RedisClient)
}

func TestInitRedis_Unavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := InitRedis(context.Background(), addr)

	assert.Nil(t, client)
	assert.Nil(t, RedisClient)
}
