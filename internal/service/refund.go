package service

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
)

// RefundResult reports a completed refund: the refund record, the
// reversed amounts, and the seats returned to inventory.
type RefundResult struct {
	RefundID        uint64 `json:"refund_id"`
	PaymentID       uint64 `json:"payment_id"`
	BookingID       uint64 `json:"booking_id"`
	GatewayRef      string `json:"gateway_ref"`
	AmountCents     int64  `json:"amount_cents"`
	BaseAmountCents int64  `json:"base_amount_cents"`
	SeatsReleased   int    `json:"seats_released"`
}

// RefundService reverses a successful payment: refunds the charge at the
// gateway, cancels the booking, and returns its seats to AVAILABLE in one
// transaction.  The payment row is locked while its eligibility is
// checked, so two concurrent refunds of the same payment serialize and
// exactly one wins; the loser observes REFUNDED and gets
// ErrNotEligibleForRefund.
type RefundService struct {
	tx        TxRunner
	seats     SeatUnits
	bookings  Bookings
	payments  Payments
	gateway   PaymentGateway
	publisher EventPublisher
	clk       clock.Clock
}

// NewRefundService constructs a RefundService.
func NewRefundService(tx TxRunner, seats SeatUnits, bookings Bookings, payments Payments,
	gateway PaymentGateway, publisher EventPublisher, clk clock.Clock) *RefundService {
	if tx == nil || seats == nil || bookings == nil || payments == nil || gateway == nil || clk == nil {
		panic("nil dependency passed to NewRefundService")
	}
	return &RefundService{
		tx: tx, seats: seats, bookings: bookings, payments: payments,
		gateway: gateway, publisher: publisher, clk: clk,
	}
}

// Refund refunds the payment in full and releases its seats.  Only a
// SUCCESS payment with a confirmation timestamp is eligible.  The gateway
// call runs before any local mutation: if the gateway declines, nothing
// here changes and the caller may retry.
func (s *RefundService) Refund(ctx context.Context, paymentID uint64, reason string) (*RefundResult, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}

	var result *RefundResult
	var ev queue.BookingRefundedEvent
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		payment, err := s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentSuccess || payment.CompletedAt == nil {
			return ErrNotEligibleForRefund
		}

		ref, err := s.gateway.Refund(ctx, payment.GatewayRef, payment.AmountCents)
		if err != nil {
			log.Printf("refund: gateway refund failed for payment %d: %v", payment.ID, err)
			return ErrGatewayRefundFailed
		}

		won, err := s.payments.MarkRefunded(ctx, payment.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrNotEligibleForRefund
		}

		booking, err := s.bookings.GetByID(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		seatIDs, err := s.bookings.SeatUnitIDs(ctx, booking.ID)
		if err != nil {
			return err
		}
		released, err := s.seats.UpdateStatus(ctx, booking.ShowtimeID, seatIDs, model.SeatBooked, model.SeatAvailable)
		if err != nil {
			return err
		}
		cancelled, err := s.bookings.UpdateStatus(ctx, booking.ID, model.BookingConfirmed, model.BookingCancelled)
		if err != nil {
			return err
		}
		if !cancelled {
			// The booking is not CONFIRMED anymore; rolling back also
			// undoes MarkRefunded and the seat release above.
			return ErrNotEligibleForRefund
		}

		// Convert the refunded amount back to the house currency with the
		// rate stored at charge time.
		refund := &model.Refund{
			PaymentID:       payment.ID,
			BookingID:       booking.ID,
			GatewayRef:      ref,
			AmountCents:     payment.AmountCents,
			BaseAmountCents: payment.AmountCents * payment.FxRateMicros / 1_000_000,
			Reason:          reason,
		}
		if err := s.payments.CreateRefund(ctx, refund); err != nil {
			return err
		}

		result = &RefundResult{
			RefundID:        refund.ID,
			PaymentID:       payment.ID,
			BookingID:       booking.ID,
			GatewayRef:      ref,
			AmountCents:     refund.AmountCents,
			BaseAmountCents: refund.BaseAmountCents,
			SeatsReleased:   int(released),
		}
		ev = queue.BookingRefundedEvent{
			BookingID:   booking.ID,
			PaymentID:   payment.ID,
			RefundID:    refund.ID,
			OwnerKey:    booking.OwnerKey,
			ShowtimeID:  booking.ShowtimeID,
			AmountCents: refund.AmountCents,
			Reason:      reason,
			RefundedAt:  s.clk.Now().Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.BookingRefunded(ctx, ev)
	}
	return result, nil
}
