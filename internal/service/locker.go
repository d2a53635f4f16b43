package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Locker provides cross-process mutual exclusion keyed by name.
type Locker interface {
	// Acquire returns acquired=false without error when the key is already held.
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

// releaseScript deletes the key only if it still holds our token, so a lock
// that expired and was taken by another holder is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX and a token-checked release.
type RedisLocker struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRedisLocker creates a new RedisLocker.
func NewRedisLocker(rdb *redis.Client, log zerolog.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, log: log.With().Str("component", "redis_locker").Logger()}
}

func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}

	release := func() {
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(rctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warn().Err(err).Str("key", key).Msg("Failed to release lock")
		}
	}
	return release, true, nil
}
