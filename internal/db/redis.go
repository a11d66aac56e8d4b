package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"voip-router/internal/config"
)

// NewRedisClient connects the single-node tenant cache. The caller decides
// whether a failure is fatal.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("no redis address provided")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
