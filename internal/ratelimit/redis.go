package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "rate:messages:min:"

// Redis is a fixed one-minute window shared by every server instance
type Redis struct {
	client    *goredis.Client
	perMinute int
	window    time.Duration
}

func NewRedis(client *goredis.Client, perMinute int) *Redis {
	if perMinute < 0 {
		perMinute = 0
	}
	return &Redis{client: client, perMinute: perMinute, window: time.Minute}
}

func (r *Redis) Allow(ctx context.Context, key string) (time.Duration, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	if key == "" {
		return 0, false, fmt.Errorf("rate key is required")
	}
	if r.perMinute == 0 {
		return 0, true, nil
	}

	count, ttl, err := r.incrementWindow(ctx, keyPrefix+key)
	if err != nil {
		return 0, false, err
	}
	if count > int64(r.perMinute) {
		return ceilSeconds(ttl), false, nil
	}
	return 0, true, nil
}

func (r *Redis) incrementWindow(ctx context.Context, key string) (int64, time.Duration, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("increment rate key: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return 0, 0, fmt.Errorf("set rate key ttl: %w", err)
		}
	}

	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("read rate key ttl: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}

	return count, ttl, nil
}
