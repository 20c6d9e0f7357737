package model

import "time"

// Discount kinds accepted for promotions.
const (
	DiscountPercent = "PERCENT" // Value is whole percent, e.g. 10 = 10% off
	DiscountFixed   = "FIXED"   // Value is an amount in cents
)

// Promotion is a code-based discount applied to the booking total at
// checkout, never per seat.  Usage limits are enforced transactionally
// against the promotion_usages table.
//
// Fields:
//  ID           – primary key identifier.
//  Code         – redemption code entered by the buyer.
//  DiscountType – PERCENT or FIXED.
//  Value        – percent or cents depending on DiscountType.
//  StartsAt     – beginning of the redemption window.
//  EndsAt       – end of the redemption window.
//  UsageLimit   – global redemption cap; 0 means unlimited.
//  PerUserLimit – per-owner redemption cap; 0 means unlimited.
//  Active       – soft on/off switch.
type Promotion struct {
	ID           uint64    // promotions.id
	Code         string    // promotions.code
	DiscountType string    // promotions.discount_type
	Value        int64     // promotions.value
	StartsAt     time.Time // promotions.starts_at
	EndsAt       time.Time // promotions.ends_at
	UsageLimit   int       // promotions.usage_limit
	PerUserLimit int       // promotions.per_user_limit
	Active       bool      // promotions.active
}

// InWindow reports whether the promotion may be redeemed at the given
// instant.
func (p *Promotion) InWindow(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// PromotionUsage is one redemption of a promotion, recorded in the same
// transaction as the booking it discounted.
type PromotionUsage struct {
	ID          uint64    // promotion_usages.id
	PromotionID uint64    // promotion_usages.promotion_id
	BookingID   uint64    // promotion_usages.booking_id
	OwnerKey    string    // promotion_usages.owner_key
	UsedAt      time.Time // promotion_usages.used_at
}
