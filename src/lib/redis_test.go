package lib

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) (*RedisLocker, redismock.ClientMock) {
	client, mock := redismock.NewClientMock()
	t.Cleanup(func() { client.Close() })
	locker := NewRedisLocker(client, time.Minute)
	locker.token = func() string { return "t1" }
	return locker, mock
}

func TestRedisLockerLockAndUnlock(t *testing.T) {
	locker, mock := newTestLocker(t)
	ctx := context.Background()

	mock.ExpectSetNX("lock:sweep:refunds", "t1", time.Minute).SetVal(true)
	mock.ExpectEval(unlockScript, []string{"lock:sweep:refunds"}, "t1").SetVal(int64(1))

	lock, err := locker.Lock(ctx, "refunds")
	require.NoError(t, err)
	require.NoError(t, lock.Unlock(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerHeld(t *testing.T) {
	locker, mock := newTestLocker(t)

	mock.ExpectSetNX("lock:sweep:refunds", "t1", time.Minute).SetVal(false)

	_, err := locker.Lock(context.Background(), "refunds")
	assert.ErrorIs(t, err, ErrLockHeld)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisLockerError(t *testing.T) {
	locker, mock := newTestLocker(t)

	mock.ExpectSetNX("lock:sweep:refunds", "t1", time.Minute).SetErr(errors.New("connection refused"))

	_, err := locker.Lock(context.Background(), "refunds")
	assert.EqualError(t, err, "connection refused")
}

func TestNewRedisClientBadURL(t *testing.T) {
	_, err := NewRedisClient("not-a-url")
	assert.Error(t, err)

	client, err := NewRedisClient("redis://localhost:6379/0")
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", client.Options().Addr)
}
