package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// hitScript increments a counter and gives it a TTL in the same atomic step
// whenever it has none, so a key never outlives its window.
var hitScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// RedisLimiter is a Counter backed by Redis so every instance of the
// service sees the same attempt counts. Each key is an INCR counter that
// expires one window after its first hit.
type RedisLimiter struct {
	rdb      redis.Cmdable
	prefix   string
	limit    int64
	duration time.Duration
}

// NewRedis creates a Redis-backed counter. prefix namespaces the keys,
// e.g. "login_ip".
func NewRedis(rdb redis.Cmdable, prefix string, limit int, duration time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:      rdb,
		prefix:   prefix,
		limit:    int64(limit),
		duration: duration,
	}
}

func (l *RedisLimiter) key(k string) string {
	return "campusboard:" + l.prefix + ":" + k
}

// Hit implements Counter.
func (l *RedisLimiter) Hit(ctx context.Context, key string) (bool, error) {
	count, err := hitScript.Run(ctx, l.rdb, []string{l.key(key)}, l.duration.Milliseconds()).Int64()
	if err != nil {
		return false, err
	}
	return count <= l.limit, nil
}

// Clear implements Counter.
func (l *RedisLimiter) Clear(ctx context.Context, key string) error {
	return l.rdb.Del(ctx, l.key(key)).Err()
}
