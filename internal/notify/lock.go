package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker guards the retry sweep against concurrent invocations. Unlike an
// in-memory flag, a Redis lease holds across multiple service instances.
type Locker interface {
	TryLock(ctx context.Context) (release func(), ok bool)
}

type RedisLock struct {
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

var redisReleaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

func NewRedisLock(rdb *redis.Client, key string, ttl time.Duration, logger *slog.Logger) *RedisLock {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &RedisLock{rdb: rdb, key: key, ttl: ttl, logger: logger}
}

// TryLock acquires a lease via SET NX. On Redis errors it reports the lock as
// held-elsewhere is false: the sweep proceeds, since row locks in the database
// still prevent double delivery within a single sweep.
func (l *RedisLock) TryLock(ctx context.Context) (func(), bool) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		if l.logger != nil {
			l.logger.Warn("sweep lock unavailable, proceeding without it", "err", err)
		}
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := redisReleaseScript.Run(releaseCtx, l.rdb, []string{l.key}, token).Result(); err != nil && l.logger != nil {
			l.logger.Warn("sweep lock release failed", "err", err)
		}
	}, true
}

// NoopLock is used when Redis is not configured (dev/test).
type NoopLock struct{}

func (NoopLock) TryLock(context.Context) (func(), bool) {
	return func() {}, true
}
