package redis

import (
	"context"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// Locker implements a best-effort distributed lock over SetNX.
type Locker struct {
	rdb *redisv9.Client
}

func NewLocker(rdb *redisv9.Client) *Locker {
	return &Locker{rdb: rdb}
}

// TryLock attempts to acquire a lock key with TTL
func (l *Locker) TryLock(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return l.rdb.SetNX(ctx, key, value, ttl).Result()
}

// Unlock releases the lock only if value still owns it.
func (l *Locker) Unlock(ctx context.Context, key, value string) error {
	script := redisv9.NewScript(`
		if redis.call('GET', KEYS[1]) == ARGV[1] then
			return redis.call('DEL', KEYS[1])
		end
		return 0
	`)
	return script.Run(ctx, l.rdb, []string{key}, value).Err()
}
