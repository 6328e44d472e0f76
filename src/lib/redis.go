package lib

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func NewRedisClient(url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil, err
	}
	return redis.NewClient(opt), nil
}

var ErrLockHeld = errors.New("lock held by another instance")

const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) else return 0 end`

// RedisLocker is a gocron.Locker backed by SET NX, so that only one API
// instance runs a sweep at a time.
type RedisLocker struct {
	client redis.Cmdable
	ttl    time.Duration
	token  func() string
}

func NewRedisLocker(client redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, token: uuid.NewString}
}

func lockKey(key string) string {
	return "lock:sweep:" + key
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
	token := l.token()
	ok, err := l.client.SetNX(ctx, lockKey(key), token, l.ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLockHeld
	}
	return &redisLock{client: l.client, key: lockKey(key), token: token}, nil
}

type redisLock struct {
	client redis.Cmdable
	key    string
	token  string
}

// Unlock deletes the key only if this instance still owns it.
func (r *redisLock) Unlock(ctx context.Context) error {
	return r.client.Eval(ctx, unlockScript, []string{r.key}, r.token).Err()
}
