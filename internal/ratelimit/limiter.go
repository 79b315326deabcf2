// Package ratelimit holds the per-user send debounce. The chat pipeline
// also checks the age of the last persisted message; this guard exists to
// close the read-then-write race between two concurrent sends.
package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter grants or denies one send slot per user per cooldown window.
type Limiter interface {
	Allow(ctx context.Context, userID string, cooldown time.Duration) (bool, error)
}

type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow takes the slot with SET NX; the key expires on its own, so a
// crashed request never wedges the user.
func (l *RedisLimiter) Allow(ctx context.Context, userID string, cooldown time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, "chat:cooldown:"+userID, 1, cooldown).Result()
}
