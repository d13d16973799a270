// Package ratelimit caps how many messages a user may send per minute.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ammar1510/spark/internal/config"
	"github.com/ammar1510/spark/internal/logger"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendOff    = "off"
)

var log = logger.New("ratelimit")

// Limiter decides whether one more action under key is allowed. When it is
// not, retryAfter tells the caller how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (retryAfter time.Duration, allowed bool, err error)
}

// Noop allows everything
type Noop struct{}

func (Noop) Allow(context.Context, string) (time.Duration, bool, error) {
	return 0, true, nil
}

// New builds the limiter selected by cfg. The returned close func releases
// the redis client when one was opened.
func New(ctx context.Context, cfg config.RateLimitConfig) (Limiter, func() error, error) {
	noClose := func() error { return nil }

	if cfg.PerMinute <= 0 {
		return Noop{}, noClose, nil
	}

	switch cfg.Backend {
	case BackendOff:
		return Noop{}, noClose, nil
	case BackendMemory, "":
		return NewLocal(cfg.PerMinute), noClose, nil
	case BackendRedis:
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("ping redis: %w", err)
		}
		log.Info("Using redis rate limiter at %s", cfg.RedisAddr)
		return NewRedis(client, cfg.PerMinute), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported rate limit backend: %s", cfg.Backend)
	}
}

func ceilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	return (d + time.Second - 1).Truncate(time.Second)
}
