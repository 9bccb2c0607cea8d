// Package repository contains the repository layer for the Misbar API
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nsvirk/misbarapi/internal/config"
	"github.com/nsvirk/misbarapi/pkg/utils/zaplogger"
	"github.com/redis/go-redis/v9"
)

// ConnectRedis connects to Redis and verifies the connection with a ping
func ConnectRedis(cfg *config.Config) (*redis.Client, error) {
	zaplogger.Info("Initializing Redis")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		_ = redisClient.Close()
		return nil, err
	}
	zaplogger.Info("  * connected")
	return redisClient, nil
}
