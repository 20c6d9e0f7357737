// Package lockstore implements the fast distributed seat-lock store on
// Redis.  One key exists per (showtime, seat unit) while a lock is held;
// the value is the lock token.  SET NX gives atomic check-and-set per
// key, so two concurrent owners can never both acquire the same seat,
// and release/extend compare the stored token first so a later lock is
// never clobbered by a stale owner.
package lockstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrSeatTaken is returned by Acquire when another lock already holds the
// seat.  Callers translate this into a seat conflict.
var ErrSeatTaken = errors.New("seat already locked")

// ErrNotHeld is returned by Extend when the entry is gone or owned by a
// different token; the lock has effectively expired in the fast store.
var ErrNotHeld = errors.New("lock entry not held")

// ErrUnavailable wraps any transport failure talking to Redis.  It is a
// dependency failure, distinct from contention, so callers can back off
// instead of re-picking seats.
var ErrUnavailable = errors.New("lock store unavailable")

// releaseScript deletes the entry only when it still carries the caller's
// token.  Returning 0 for a missing or foreign entry keeps Release
// idempotent.
const releaseScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('DEL', KEYS[1]) else return 0 end`

// extendScript refreshes the TTL only when the caller still owns the
// entry.
const extendScript = `if redis.call('GET', KEYS[1]) == ARGV[1] then return redis.call('PEXPIRE', KEYS[1], ARGV[2]) else return 0 end`

// RedisStore is the production SeatLockStore.  Every call is bounded by
// the configured timeout so a slow Redis surfaces as ErrUnavailable
// instead of hanging a request.
type RedisStore struct {
	rdb     *redis.Client
	timeout time.Duration
}

// New returns a RedisStore using the given per-call timeout.
func New(rdb *redis.Client, timeout time.Duration) *RedisStore {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisStore{rdb: rdb, timeout: timeout}
}

// SeatKey is the Redis key for one seat unit of one showtime.
func SeatKey(showtimeID, seatUnitID uint64) string {
	return fmt.Sprintf("seatlock:%d:%d", showtimeID, seatUnitID)
}

// Acquire atomically claims a seat for the given lock token with a TTL.
// ErrSeatTaken when another token holds it, ErrUnavailable on transport
// failure.
func (s *RedisStore) Acquire(ctx context.Context, showtimeID, seatUnitID uint64, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ok, err := s.rdb.SetNX(ctx, SeatKey(showtimeID, seatUnitID), token, ttl).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return ErrSeatTaken
	}
	return nil
}

// Release removes the seat entry if it still belongs to the token.  It is
// idempotent: releasing an expired or foreign entry is not an error.
func (s *RedisStore) Release(ctx context.Context, showtimeID, seatUnitID uint64, token string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.rdb.Eval(ctx, releaseScript, []string{SeatKey(showtimeID, seatUnitID)}, token).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Extend refreshes the entry's TTL when the token still owns it.
// ErrNotHeld when the entry expired or changed hands.
func (s *RedisStore) Extend(ctx context.Context, showtimeID, seatUnitID uint64, token string, ttl time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.rdb.Eval(ctx, extendScript, []string{SeatKey(showtimeID, seatUnitID)}, token, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if res == 0 {
		return ErrNotHeld
	}
	return nil
}
