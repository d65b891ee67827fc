package redis

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/meinhoongagan/tutor-sessions/config"
)

// Connect opens a client and verifies the connection.
func Connect(ctx context.Context, conf *config.Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: conf.RedisAddr,
		DB:   0,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", conf.RedisAddr, err)
	}
	log.Infof("connected to redis at %s", conf.RedisAddr)
	return client, nil
}
