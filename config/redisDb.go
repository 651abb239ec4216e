package config

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	rdb *redis.Client
)

func GetRedisDB() *redis.Client {
	return rdb
}

// ConnectRedis connects and sets the global Redis client.
// Redis only backs the optional rate limiter, so a failed ping leaves the client nil
// instead of blocking startup.
func ConnectRedis(ctx context.Context) error {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
		log.Printf("REDIS_ADDRESS not set; defaulting to %s", redisAddr)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: "",
		DB:       0, // use default DB
		PoolSize: 20,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return err
	}
	rdb = client
	log.Printf("connected to redis (addr=%s)", redisAddr)
	return nil
}

func CloseRedis() {
	if rdb == nil {
		return
	}
	_ = rdb.Close()
	rdb = nil
}
