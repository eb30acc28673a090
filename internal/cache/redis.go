package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"habitquest/api/internal/tabular"
)

// Redis backs the read cache with a shared Redis instance, so cache hits
// survive process restarts and are shared between replicas.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(redisURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &Redis{client: client, ttl: ttl}, nil
}

// NewRedisWithClient builds a cache from an existing client.
func NewRedisWithClient(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) ([]tabular.Row, bool) {
	payload, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: redis get failed, reading live: %v", err)
		return nil, false
	}

	var rows []tabular.Row
	if err := json.Unmarshal([]byte(payload), &rows); err != nil {
		log.Printf("cache: stale entry %s dropped: %v", key, err)
		_ = r.client.Del(ctx, key).Err()
		return nil, false
	}
	return rows, true
}

func (r *Redis) Set(ctx context.Context, key string, rows []tabular.Row) {
	if r.ttl <= 0 {
		return
	}
	payload, err := json.Marshal(rows)
	if err != nil {
		return
	}
	if err := r.client.Set(ctx, key, payload, r.ttl).Err(); err != nil {
		log.Printf("cache: redis set failed: %v", err)
	}
}

func (r *Redis) Invalidate(ctx context.Context, sheetID, sheetName string) {
	pattern := scope(sheetID, sheetName) + "*"
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Printf("cache: redis del %s failed: %v", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Printf("cache: redis scan failed: %v", err)
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
