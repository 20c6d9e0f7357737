package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// SeatUnitRepo provides data access to showtime_seats, the seat
// inventory.  Status transitions are always guarded by the expected
// current status so concurrent writers cannot lose updates: the number
// of affected rows tells the caller whether every seat really was in the
// state it assumed.
type SeatUnitRepo struct {
	store *Store
}

// NewSeatUnitRepo returns a SeatUnitRepo bound to the store.
func NewSeatUnitRepo(store *Store) *SeatUnitRepo { return &SeatUnitRepo{store: store} }

const seatUnitColumns = `su.id, su.showtime_id, su.seat_id, se.row_label, se.seat_number, se.seat_type,
       su.status, su.price_cents, su.created_at, su.updated_at`

// GetForShowtime loads the requested seat units of one showtime.  Every
// requested ID must exist and belong to the showtime; a shorter result
// means the selection referenced a foreign or unknown seat and the
// caller should fail validation with ErrSeatNotFound.
func (r *SeatUnitRepo) GetForShowtime(ctx context.Context, showtimeID uint64, unitIDs []uint64) ([]model.SeatUnit, error) {
	if len(unitIDs) == 0 {
		return []model.SeatUnit{}, nil
	}
	query := `SELECT ` + seatUnitColumns + `
              FROM showtime_seats su
              JOIN seats se ON se.id = su.seat_id
              WHERE su.showtime_id = ? AND su.id IN (` + placeholders(len(unitIDs)) + `)`
	args := make([]any, 0, len(unitIDs)+1)
	args = append(args, showtimeID)
	for _, id := range unitIDs {
		args = append(args, id)
	}
	return r.scanUnits(ctx, query, args...)
}

// ListByShowtime returns every seat unit of a showtime ordered by row
// and number, for the availability map.
func (r *SeatUnitRepo) ListByShowtime(ctx context.Context, showtimeID uint64) ([]model.SeatUnit, error) {
	query := `SELECT ` + seatUnitColumns + `
              FROM showtime_seats su
              JOIN seats se ON se.id = su.seat_id
              WHERE su.showtime_id = ?
              ORDER BY se.row_label, se.seat_number`
	return r.scanUnits(ctx, query, showtimeID)
}

// UpdateStatus transitions the given units from one status to another and
// returns how many rows actually moved.  A count short of len(unitIDs)
// means some unit was not in the expected state; callers decide whether
// that is a conflict (lock acquisition) or fine (idempotent release).
func (r *SeatUnitRepo) UpdateStatus(ctx context.Context, showtimeID uint64, unitIDs []uint64, from, to model.SeatStatus) (int64, error) {
	if len(unitIDs) == 0 {
		return 0, nil
	}
	query := `UPDATE showtime_seats SET status = ?, updated_at = UTC_TIMESTAMP()
              WHERE showtime_id = ? AND status = ? AND id IN (` + placeholders(len(unitIDs)) + `)`
	args := make([]any, 0, len(unitIDs)+3)
	args = append(args, string(to), showtimeID, string(from))
	for _, id := range unitIDs {
		args = append(args, id)
	}
	res, err := r.store.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// NotAvailable returns which of the given units are currently not
// AVAILABLE, so conflict responses can name the exact losing seats.
func (r *SeatUnitRepo) NotAvailable(ctx context.Context, showtimeID uint64, unitIDs []uint64) ([]uint64, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM showtime_seats
              WHERE showtime_id = ? AND status <> ? AND id IN (` + placeholders(len(unitIDs)) + `)`
	args := make([]any, 0, len(unitIDs)+2)
	args = append(args, showtimeID, string(model.SeatAvailable))
	for _, id := range unitIDs {
		args = append(args, id)
	}
	rows, err := r.store.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *SeatUnitRepo) scanUnits(ctx context.Context, query string, args ...any) ([]model.SeatUnit, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	units := make([]model.SeatUnit, 0)
	for rows.Next() {
		var u model.SeatUnit
		var status string
		if err := rows.Scan(&u.ID, &u.ShowtimeID, &u.SeatID, &u.RowLabel, &u.SeatNumber, &u.SeatType,
			&status, &u.PriceCents, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		u.Status = model.SeatStatus(status)
		units = append(units, u)
	}
	return units, rows.Err()
}

// placeholders builds "?, ?, ?" for IN clauses.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
