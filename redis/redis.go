package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var RedisClient *redis.Client

// InitRedis connects to addr. When the server cannot be reached the client
// stays nil and callers run without Redis.
func InitRedis(ctx context.Context, addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", addr).Msg("redis not available, running without redis")
		_ = client.Close()
		RedisClient = nil
		return nil
	}

	log.Info().Str("addr", addr).Msg("redis connected")
	RedisClient = client
	return client
}

func CloseRedis() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close redis")
	}
	RedisClient = nil
}
