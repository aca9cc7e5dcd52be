package dal

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"dc-purchase-api/internal/config"
)

// RedisClient 为 nil 表示未启用缓存与订单租约
var RedisClient *redis.Client

func InitRedis() {
	c := config.C.Redis
	if !c.Enabled {
		log.Println("[Redis] disabled")
		return
	}
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := RedisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping failed: %v", err)
	}
}
