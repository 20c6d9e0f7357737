package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// isDuplicateEntry reports whether err is MySQL error 1062, a unique key
// violation.
func isDuplicateEntry(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}

// LockRepo provides data access to seat_locks and seat_lock_seats.  Lock
// rows are the durable side of the dual-store design: the Redis entries
// carry the per-seat mutual exclusion, these rows carry ownership,
// expiry and the immutable seat set, and survive for audit after
// deactivation.  All timestamps are UTC.
type LockRepo struct {
	store *Store
}

// NewLockRepo returns a LockRepo bound to the store.
func NewLockRepo(store *Store) *LockRepo { return &LockRepo{store: store} }

// NewToken generates the opaque capability token stored on a lock.  The
// underlying crypto/rand read gives 32 bytes, rendered as 64 hex chars.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Create inserts the lock row plus one seat_lock_seats row per seat and
// populates the generated ID.  The seat set is written once here and
// never mutated afterwards.
//
// active_flag is the nullable twin of active: 1 while the lock is live,
// NULL once deactivated.  The unique key on (owner_key, showtime_id,
// active_flag) makes the one-active-lock-per-owner-per-showtime rule a
// database constraint; NULL never collides, so any number of dead locks
// may pile up for audit.  A duplicate-key rejection here means a
// concurrent insert won and surfaces as ErrDuplicateActiveLock.
func (r *LockRepo) Create(ctx context.Context, lock *model.Lock) error {
	const q = `INSERT INTO seat_locks (owner_key, showtime_id, lock_token, expires_at, active, active_flag)
               VALUES (?, ?, ?, ?, 1, 1)`
	res, err := r.store.q(ctx).ExecContext(ctx, q, lock.OwnerKey, lock.ShowtimeID, lock.Token,
		lock.ExpiresAt.UTC().Format("2006-01-02 15:04:05"))
	if err != nil {
		if isDuplicateEntry(err) {
			return ErrDuplicateActiveLock
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	lock.ID = uint64(id)
	lock.Active = true

	if len(lock.Seats) == 0 {
		return nil
	}
	query := `INSERT INTO seat_lock_seats (lock_id, showtime_id, seat_unit_id, ticket_type_id) VALUES `
	args := make([]any, 0, len(lock.Seats)*4)
	for i, s := range lock.Seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?)"
		args = append(args, lock.ID, lock.ShowtimeID, s.SeatUnitID, s.TicketTypeID)
	}
	_, err = r.store.q(ctx).ExecContext(ctx, query, args...)
	return err
}

const lockColumns = `id, owner_key, showtime_id, lock_token, expires_at, active, created_at`

// GetByToken resolves a lock by its capability token, locking the row
// for the rest of the transaction so checkout cannot race the reaper on
// the same lock.  ErrLockNotFound when no row carries the token.
func (r *LockRepo) GetByToken(ctx context.Context, token string) (*model.Lock, error) {
	q := `SELECT ` + lockColumns + ` FROM seat_locks WHERE lock_token = ?`
	if txFromContext(ctx) != nil {
		q += ` FOR UPDATE`
	}
	return r.scanOne(ctx, q, token)
}

// ActiveByOwnerAndShowtime returns the owner's active, unexpired lock on
// a showtime, or ErrLockNotFound.  At most one such row can exist.
func (r *LockRepo) ActiveByOwnerAndShowtime(ctx context.Context, ownerKey string, showtimeID uint64, now time.Time) (*model.Lock, error) {
	q := `SELECT ` + lockColumns + ` FROM seat_locks
          WHERE owner_key = ? AND showtime_id = ? AND active = 1 AND expires_at > ?`
	if txFromContext(ctx) != nil {
		q += ` FOR UPDATE`
	}
	return r.scanOne(ctx, q, ownerKey, showtimeID, now.UTC().Format("2006-01-02 15:04:05"))
}

// Deactivate flips the active flag off and reports whether this call was
// the one that did it.  The guard on active = 1 makes release, checkout
// and the reaper safe to race: exactly one of them wins.  Clearing
// active_flag to NULL frees the unique slot so the owner can lock the
// showtime again.
func (r *LockRepo) Deactivate(ctx context.Context, lockID uint64) (bool, error) {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE seat_locks SET active = 0, active_flag = NULL WHERE id = ? AND active = 1`, lockID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ExtendExpiry moves an active lock's expiry forward.
func (r *LockRepo) ExtendExpiry(ctx context.Context, lockID uint64, expiresAt time.Time) error {
	_, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE seat_locks SET expires_at = ? WHERE id = ? AND active = 1`,
		expiresAt.UTC().Format("2006-01-02 15:04:05"), lockID)
	return err
}

// ListExpired returns up to limit locks that are still active but past
// their expiry, oldest first, for the reaper.
func (r *LockRepo) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Lock, error) {
	const q = `SELECT ` + lockColumns + ` FROM seat_locks
               WHERE active = 1 AND expires_at <= ?
               ORDER BY expires_at LIMIT ?`
	rows, err := r.store.q(ctx).QueryContext(ctx, q, now.UTC().Format("2006-01-02 15:04:05"), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	locks := make([]model.Lock, 0)
	for rows.Next() {
		var l model.Lock
		if err := scanLock(rows, &l); err != nil {
			return nil, err
		}
		locks = append(locks, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range locks {
		if err := r.loadSeats(ctx, &locks[i]); err != nil {
			return nil, err
		}
	}
	return locks, nil
}

func (r *LockRepo) scanOne(ctx context.Context, query string, args ...any) (*model.Lock, error) {
	var l model.Lock
	row := r.store.q(ctx).QueryRowContext(ctx, query, args...)
	if err := scanLock(row, &l); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLockNotFound
		}
		return nil, err
	}
	if err := r.loadSeats(ctx, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LockRepo) loadSeats(ctx context.Context, l *model.Lock) error {
	const q = `SELECT seat_unit_id, ticket_type_id FROM seat_lock_seats WHERE lock_id = ? ORDER BY seat_unit_id`
	rows, err := r.store.q(ctx).QueryContext(ctx, q, l.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.LockSeat
		if err := rows.Scan(&s.SeatUnitID, &s.TicketTypeID); err != nil {
			return err
		}
		l.Seats = append(l.Seats, s)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLock(row rowScanner, l *model.Lock) error {
	var active int
	if err := row.Scan(&l.ID, &l.OwnerKey, &l.ShowtimeID, &l.Token, &l.ExpiresAt, &active, &l.CreatedAt); err != nil {
		return err
	}
	l.Active = active == 1
	return nil
}
