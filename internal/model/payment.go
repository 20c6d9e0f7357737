package model

import "time"

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

// Payment is the one-to-one payment record for a booking attempt.  It is
// created PENDING in the same transaction as the booking and advanced by
// the gateway confirmation path and the refund orchestrator.
//
// Fields:
//  ID            – primary key identifier.
//  BookingID     – booking this payment belongs to.
//  Method        – payment method chosen at checkout (CARD, WALLET, ...).
//  GatewayRef    – gateway transaction reference from initiate().
//  AmountCents   – charged amount in the charge currency.
//  Currency      – ISO currency code of the charge.
//  FxRateMicros  – exchange rate to the house currency at charge time,
//                  scaled by 1e6; 1_000_000 means the charge was already
//                  in the house currency.  Refunds convert with this
//                  stored rate, never the current one.
//  Status        – PENDING, SUCCESS, FAILED or REFUNDED.
//  CompletedAt   – when the gateway confirmed the payment (nullable).
type Payment struct {
	ID           uint64        // payments.id
	BookingID    uint64        // payments.booking_id
	Method       string        // payments.method
	GatewayRef   string        // payments.gateway_ref
	AmountCents  int64         // payments.amount_cents
	Currency     string        // payments.currency
	FxRateMicros int64         // payments.fx_rate_micros
	Status       PaymentStatus // payments.status
	CreatedAt    time.Time     // payments.created_at
	CompletedAt  *time.Time    // payments.completed_at (nullable)
}

// Refund records a completed reversal of a successful payment.
//
// Fields:
//  ID             – primary key identifier.
//  PaymentID      – payment that was refunded.
//  BookingID      – booking that was cancelled.
//  GatewayRef     – gateway refund reference.
//  AmountCents    – refunded amount in the original charge currency.
//  BaseAmountCents– refunded amount converted to the house currency with
//                   the payment's stored exchange rate.
//  Reason         – caller-supplied reason; always non-empty.
type Refund struct {
	ID              uint64    // refunds.id
	PaymentID       uint64    // refunds.payment_id
	BookingID       uint64    // refunds.booking_id
	GatewayRef      string    // refunds.gateway_ref
	AmountCents     int64     // refunds.amount_cents
	BaseAmountCents int64     // refunds.base_amount_cents
	Reason          string    // refunds.reason
	CreatedAt       time.Time // refunds.created_at
}
