package queue

import (
	"context"
	"fmt"
	"log"
	"time"

	"taskini/internal/platform/config"

	"github.com/redis/go-redis/v9"
)

// RDB backs the summary cache, token revocation, session events and the photo cleanup queue.
var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:         config.AppConfig.RedisAddr,
		Password:     config.AppConfig.RedisPassword,
		DB:           config.AppConfig.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := RDB.Ping(ctx).Err(); err != nil {
		log.Fatalf("Could not connect to Redis at %s: %v", config.AppConfig.RedisAddr, err)
	}
	fmt.Println("Successfully connected to Redis!")
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		fmt.Println("Redis connection closed.")
	}
}
