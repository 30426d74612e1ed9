package db

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// ConnectRedis creates a Redis client for the announcement update feed and
// verifies connectivity before returning it.
func ConnectRedis(ctx context.Context, addr, password string, dbNum int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       dbNum,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}
