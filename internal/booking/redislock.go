package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisLocker is a Locker shared by every instance pointing at the same
// Redis.  Each key is a SET NX PX entry holding a random token; release
// deletes the key only while it still holds our token.
type RedisLocker struct {
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedisLocker returns a RedisLocker.  ttl bounds how long a crashed
// holder can block a slot.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
	if prefix == "" {
		prefix = "lock"
	}
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl, retry: 25 * time.Millisecond}
}

var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

type redisHold struct {
	key   string
	token string
}

func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = sortedKeys(keys)
	held := make([]redisHold, 0, len(keys))
	for _, k := range keys {
		h, err := l.acquire(ctx, l.prefix+":"+k)
		if err != nil {
			l.release(held)
			return nil, err
		}
		held = append(held, h)
	}
	var once sync.Once
	return func() { once.Do(func() { l.release(held) }) }, nil
}

func (l *RedisLocker) acquire(ctx context.Context, key string) (redisHold, error) {
	token := uuid.NewString()
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return redisHold{}, err
		}
		if ok {
			return redisHold{key: key, token: token}, nil
		}
		t := time.NewTimer(l.retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return redisHold{}, ctx.Err()
		case <-t.C:
		}
	}
}

func (l *RedisLocker) release(held []redisHold) {
	// Release must run even when the request context is already done.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		h := held[i]
		if err := releaseScript.Run(ctx, l.rdb, []string{h.key}, h.token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			logf("release lock %s: %v", h.key, err)
		}
	}
}
