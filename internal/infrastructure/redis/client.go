// Package redis provides the Redis connection used by the device status store.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/go-redis/redis/v8"

	"github.com/syedsohail-123/flostat-dashbaord-sub001/internal/infrastructure/config"
)

// Client is an alias for the underlying go-redis client type.
type Client = goredis.Client

// NewClient creates a Redis client from configuration.
// The connection is lazy; call Ping to verify connectivity at startup.
func NewClient(cfg config.RedisConfig) *Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Ping verifies connectivity to the Redis server.
func Ping(ctx context.Context, client *Client) error {
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}
