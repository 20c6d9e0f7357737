package lockstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestAcquire(t *testing.T) {
	ctx := context.Background()
	ttl := 5 * time.Minute
	key := SeatKey(7, 42)

	t.Run("claims a free seat", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectSetNX(key, "tok-1", ttl).SetVal(true)

		assert.NoError(t, store.Acquire(ctx, 7, 42, "tok-1", ttl))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses a contested seat", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectSetNX(key, "tok-2", ttl).SetVal(false)

		err := store.Acquire(ctx, 7, 42, "tok-2", ttl)
		assert.ErrorIs(t, err, ErrSeatTaken)
	})

	t.Run("transport failure surfaces as unavailable", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectSetNX(key, "tok-3", ttl).SetErr(errors.New("connection refused"))

		err := store.Acquire(ctx, 7, 42, "tok-3", ttl)
		assert.ErrorIs(t, err, ErrUnavailable)
	})
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	key := SeatKey(7, 42)

	t.Run("deletes an owned entry", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectEval(releaseScript, []string{key}, "tok-1").SetVal(int64(1))

		assert.NoError(t, store.Release(ctx, 7, 42, "tok-1"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("idempotent when entry already expired", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectEval(releaseScript, []string{key}, "tok-1").SetVal(int64(0))

		assert.NoError(t, store.Release(ctx, 7, 42, "tok-1"))
	})

	t.Run("transport failure surfaces as unavailable", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectEval(releaseScript, []string{key}, "tok-1").SetErr(errors.New("timeout"))

		assert.ErrorIs(t, store.Release(ctx, 7, 42, "tok-1"), ErrUnavailable)
	})
}

func TestExtend(t *testing.T) {
	ctx := context.Background()
	ttl := 5 * time.Minute
	key := SeatKey(7, 42)

	t.Run("refreshes an owned entry", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectEval(extendScript, []string{key}, "tok-1", ttl.Milliseconds()).SetVal(int64(1))

		assert.NoError(t, store.Extend(ctx, 7, 42, "tok-1", ttl))
	})

	t.Run("reports a lost entry", func(t *testing.T) {
		rdb, mock := redismock.NewClientMock()
		store := New(rdb, time.Second)

		mock.ExpectEval(extendScript, []string{key}, "tok-1", ttl.Milliseconds()).SetVal(int64(0))

		assert.ErrorIs(t, store.Extend(ctx, 7, 42, "tok-1", ttl), ErrNotHeld)
	})
}
