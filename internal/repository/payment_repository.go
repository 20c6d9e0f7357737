package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// PaymentRepo provides data access to payments and refunds.  A payment
// row is one-to-one with a booking attempt; status moves are guarded so
// the confirmation callback and the refund orchestrator can never both
// win on the same row.
type PaymentRepo struct {
	store *Store
}

// NewPaymentRepo returns a PaymentRepo bound to the store.
func NewPaymentRepo(store *Store) *PaymentRepo { return &PaymentRepo{store: store} }

// Create inserts a payment row and populates the generated ID.
func (r *PaymentRepo) Create(ctx context.Context, p *model.Payment) error {
	const q = `INSERT INTO payments (booking_id, method, gateway_ref, amount_cents, currency, fx_rate_micros, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.store.q(ctx).ExecContext(ctx, q,
		p.BookingID, p.Method, p.GatewayRef, p.AmountCents, p.Currency, p.FxRateMicros, string(p.Status))
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// GetByID loads a payment, locking the row when inside a transaction so
// two refund attempts serialize.  ErrPaymentNotFound when absent.
func (r *PaymentRepo) GetByID(ctx context.Context, paymentID uint64) (*model.Payment, error) {
	q := `SELECT id, booking_id, method, gateway_ref, amount_cents, currency, fx_rate_micros, status, created_at, completed_at
          FROM payments WHERE id = ?`
	if txFromContext(ctx) != nil {
		q += ` FOR UPDATE`
	}
	var p model.Payment
	var status string
	var completed sql.NullTime
	err := r.store.q(ctx).QueryRowContext(ctx, q, paymentID).Scan(
		&p.ID, &p.BookingID, &p.Method, &p.GatewayRef, &p.AmountCents, &p.Currency, &p.FxRateMicros,
		&status, &p.CreatedAt, &completed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	p.Status = model.PaymentStatus(status)
	if completed.Valid {
		t := completed.Time
		p.CompletedAt = &t
	}
	return &p, nil
}

// MarkSucceeded moves a PENDING payment to SUCCESS with its completion
// time; reports whether this call made the transition.
func (r *PaymentRepo) MarkSucceeded(ctx context.Context, paymentID uint64, completedAt time.Time) (bool, error) {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE payments SET status = ?, completed_at = ? WHERE id = ? AND status = ?`,
		string(model.PaymentSuccess), completedAt.UTC().Format("2006-01-02 15:04:05"),
		paymentID, string(model.PaymentPending))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// MarkRefunded moves a SUCCESS payment to REFUNDED; reports whether this
// call made the transition.
func (r *PaymentRepo) MarkRefunded(ctx context.Context, paymentID uint64) (bool, error) {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`UPDATE payments SET status = ? WHERE id = ? AND status = ?`,
		string(model.PaymentRefunded), paymentID, string(model.PaymentSuccess))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// CreateRefund inserts the refund audit row and populates the generated
// ID.
func (r *PaymentRepo) CreateRefund(ctx context.Context, ref *model.Refund) error {
	const q = `INSERT INTO refunds (payment_id, booking_id, gateway_ref, amount_cents, base_amount_cents, reason)
               VALUES (?, ?, ?, ?, ?, ?)`
	res, err := r.store.q(ctx).ExecContext(ctx, q,
		ref.PaymentID, ref.BookingID, ref.GatewayRef, ref.AmountCents, ref.BaseAmountCents, ref.Reason)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ref.ID = uint64(id)
	return nil
}
