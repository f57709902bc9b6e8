package redis

import (
	"context"
	"fmt"

	"github.com/caramaschiHG/Dilutio/common/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 按配置构造客户端，不建立连接
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// Connect 构造客户端并 PING 一次；失败时客户端已关闭
func Connect(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := NewRedisClient(cfg)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s (db %d): %w", cfg.Addr, cfg.DB, err)
	}
	return client, nil
}
