package redislimiter

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/watercooler-app/watercooler-api/ratelimit"
)

// Limiter is a Redis-backed sliding window limiter using ZSETs, shared by
// every instance pointing at the same Redis.
type Limiter struct {
	rdb    *redis.Client
	prefix string
	limits map[string]ratelimit.Limit
	now    func() time.Time
}

// New constructs a limiter; nil limits uses ratelimit.DefaultLimits.
func New(rdb *redis.Client, limits map[string]ratelimit.Limit) *Limiter {
	if limits == nil {
		limits = ratelimit.DefaultLimits()
	}
	return &Limiter{rdb: rdb, prefix: "watercooler:rl:", limits: limits, now: time.Now}
}

// AllowNamed records one hit for key in bucket and reports whether it fits the window.
func (l *Limiter) AllowNamed(bucket, key string) (bool, error) {
	return l.Allow(context.Background(), bucket, key)
}

func (l *Limiter) Allow(ctx context.Context, bucket, key string) (bool, error) {
	if l == nil || l.rdb == nil {
		return true, nil
	}
	if bucket == "" || key == "" {
		return false, fmt.Errorf("bucket and key required")
	}
	lim := ratelimit.Lookup(l.limits, bucket)
	now := l.now().UnixMilli()
	start := now - lim.Window.Milliseconds()
	limitKey := l.prefix + bucket + ":" + key
	// Unique member so two hits in the same millisecond both count.
	member := strconv.FormatInt(now, 10) + ":" + uuid.NewString()

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, limitKey, "-inf", strconv.FormatInt(start, 10))
	pipe.ZAdd(ctx, limitKey, redis.Z{Score: float64(now), Member: member})
	countCmd := pipe.ZCard(ctx, limitKey)
	pipe.Expire(ctx, limitKey, lim.Window+time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	count, err := countCmd.Result()
	if err != nil {
		return false, err
	}
	if count > int64(lim.Limit) {
		// Denied attempts do not consume the window.
		l.rdb.ZRem(ctx, limitKey, member)
		return false, nil
	}
	return true, nil
}
