package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/cinema-booking-engine/internal/model"
)

// PromotionRepo provides data access to promotions and their usage
// records.  Usage counts are read inside the checkout transaction so
// limit checks and the usage insert commit or roll back together.
type PromotionRepo struct {
	store *Store
}

// NewPromotionRepo returns a PromotionRepo bound to the store.
func NewPromotionRepo(store *Store) *PromotionRepo { return &PromotionRepo{store: store} }

// GetActiveByCode loads an active promotion by its redemption code.  The
// row is locked when inside a transaction so two checkouts redeeming the
// last slot of a limited promotion serialize on it.
// ErrPromotionNotFound covers both unknown and deactivated codes.
func (r *PromotionRepo) GetActiveByCode(ctx context.Context, code string) (*model.Promotion, error) {
	q := `SELECT id, code, discount_type, value, starts_at, ends_at, usage_limit, per_user_limit, active
          FROM promotions WHERE code = ? AND active = 1`
	if txFromContext(ctx) != nil {
		q += ` FOR UPDATE`
	}
	var p model.Promotion
	var active int
	err := r.store.q(ctx).QueryRowContext(ctx, q, code).Scan(
		&p.ID, &p.Code, &p.DiscountType, &p.Value, &p.StartsAt, &p.EndsAt,
		&p.UsageLimit, &p.PerUserLimit, &active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPromotionNotFound
		}
		return nil, err
	}
	p.Active = active == 1
	return &p, nil
}

// CountUsages returns the number of global redemptions of a promotion.
func (r *PromotionRepo) CountUsages(ctx context.Context, promotionID uint64) (int, error) {
	var n int
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = ?`, promotionID).Scan(&n)
	return n, err
}

// CountUsagesByOwner returns how often one owner has redeemed a
// promotion.
func (r *PromotionRepo) CountUsagesByOwner(ctx context.Context, promotionID uint64, ownerKey string) (int, error) {
	var n int
	err := r.store.q(ctx).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM promotion_usages WHERE promotion_id = ? AND owner_key = ?`,
		promotionID, ownerKey).Scan(&n)
	return n, err
}

// RecordUsage inserts one redemption row.
func (r *PromotionRepo) RecordUsage(ctx context.Context, u *model.PromotionUsage) error {
	res, err := r.store.q(ctx).ExecContext(ctx,
		`INSERT INTO promotion_usages (promotion_id, booking_id, owner_key) VALUES (?, ?, ?)`,
		u.PromotionID, u.BookingID, u.OwnerKey)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}
