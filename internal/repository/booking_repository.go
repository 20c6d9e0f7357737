package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// BookingRepo provides data access to bookings and booking_seats.
// Bookings and their line items are always created inside the checkout
// transaction, so partial bookings are never observable.
type BookingRepo struct {
	store *Store
}

// NewBookingRepo returns a BookingRepo bound to the store.
func NewBookingRepo(store *Store) *BookingRepo { return &BookingRepo{store: store} }

// Create inserts a booking row and populates the generated ID and
// timestamps.
func (r *BookingRepo) Create(ctx context.Context, b *model.Booking) error {
	const q = `INSERT INTO bookings (owner_key, showtime_id, status, total_cents, discount_cents, final_cents, promotion_id)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	var promoID any
	if b.PromotionID != nil {
		promoID = *b.PromotionID
	}
	res, err := r.store.q(ctx).ExecContext(ctx, q,
		b.OwnerKey, b.ShowtimeID, string(b.Status), b.TotalCents, b.DiscountCents, b.FinalCents, promoID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)
	return nil
}

// CreateSeats bulk-inserts the booking's seat line items.
func (r *BookingRepo) CreateSeats(ctx context.Context, seats []model.BookingSeat) error {
	if len(seats) == 0 {
		return nil
	}
	query := `INSERT INTO booking_seats (booking_id, showtime_id, seat_unit_id, ticket_type_id, price_cents) VALUES `
	args := make([]any, 0, len(seats)*5)
	for i, s := range seats {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, s.BookingID, s.ShowtimeID, s.SeatUnitID, s.TicketTypeID, s.PriceCents)
	}
	_, err := r.store.q(ctx).ExecContext(ctx, query, args...)
	return err
}

// GetByID loads a booking.  ErrBookingNotFound when absent.
func (r *BookingRepo) GetByID(ctx context.Context, bookingID uint64) (*model.Booking, error) {
	const q = `SELECT id, owner_key, showtime_id, status, total_cents, discount_cents, final_cents,
                      promotion_id, ticket_code, created_at, updated_at
               FROM bookings WHERE id = ?`
	var b model.Booking
	var status string
	var promoID sql.NullInt64
	var code sql.NullString
	err := r.store.q(ctx).QueryRowContext(ctx, q, bookingID).Scan(
		&b.ID, &b.OwnerKey, &b.ShowtimeID, &status, &b.TotalCents, &b.DiscountCents, &b.FinalCents,
		&promoID, &code, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	b.Status = model.BookingStatus(status)
	if promoID.Valid {
		id := uint64(promoID.Int64)
		b.PromotionID = &id
	}
	if code.Valid {
		c := code.String
		b.TicketCode = &c
	}
	return &b, nil
}

// UpdateStatus transitions a booking between states and reports whether
// the guarded update matched.
func (r *BookingRepo) UpdateStatus(ctx context.Context, bookingID uint64, from, to model.BookingStatus) (bool, error) {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE bookings SET status = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND status = ?`,
		string(to), bookingID, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// SetTicketCode stores the QR/ticket code issued at payment confirmation.
func (r *BookingRepo) SetTicketCode(ctx context.Context, bookingID uint64, code string) error {
	_, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE bookings SET ticket_code = ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`, code, bookingID)
	return err
}

// SeatUnitIDs returns the seat units booked under a booking, for refund
// reversal.
func (r *BookingRepo) SeatUnitIDs(ctx context.Context, bookingID uint64) ([]uint64, error) {
	rows, err := r.store.q(ctx).QueryContext(ctx,
		`SELECT seat_unit_id FROM booking_seats WHERE booking_id = ? ORDER BY seat_unit_id`, bookingID)
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
