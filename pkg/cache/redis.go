package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sardorbek21324/Kairos-team/pkg/config"
)

// NewRedis returns a configured Redis client. Callers only invoke it when
// cfg.Enabled() reports an address.
func NewRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return client, nil
}
