package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

type refundFixture struct {
	*checkoutFixture
	refunds *RefundService
}

func newRefundFixture() *refundFixture {
	f := newCheckoutFixture()
	return &refundFixture{
		checkoutFixture: f,
		refunds: NewRefundService(f.db, f.db, bookingsAdapter{f.db}, paymentsAdapter{f.db},
			f.gateway, f.publisher, clock.NewFixed(testNow)),
	}
}

// confirmedBooking runs lock, checkout and payment confirmation so the
// refund tests start from a CONFIRMED booking with BOOKED seats.
func (f *refundFixture) confirmedBooking(t *testing.T) *BookingConfirmation {
	t.Helper()
	handle := f.lockSeats(t,
		SeatSelection{SeatUnitID: 101, TicketTypeID: 1},
		SeatSelection{SeatUnitID: 102, TicketTypeID: 2},
	)
	conf, err := f.svc.Checkout(context.Background(), testOwner, handle.Token, "", "CARD")
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(context.Background(), conf.PaymentID)
	require.NoError(t, err)
	return conf
}

func TestRefundReleasesSeatsAndCancelsBooking(t *testing.T) {
	f := newRefundFixture()
	conf := f.confirmedBooking(t)

	result, err := f.refunds.Refund(context.Background(), conf.PaymentID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, conf.PaymentID, result.PaymentID)
	assert.Equal(t, conf.BookingID, result.BookingID)
	assert.Equal(t, int64(18000), result.AmountCents)
	assert.Equal(t, int64(18000), result.BaseAmountCents)
	assert.Equal(t, 2, result.SeatsReleased)
	assert.NotEmpty(t, result.GatewayRef)

	assert.Equal(t, model.SeatAvailable, f.db.st.seats[101].Status)
	assert.Equal(t, model.SeatAvailable, f.db.st.seats[102].Status)
	assert.Equal(t, model.BookingCancelled, f.db.st.bookings[conf.BookingID].Status)
	assert.Equal(t, model.PaymentRefunded, f.db.st.payments[conf.PaymentID].Status)

	require.Len(t, f.db.st.refunds, 1)
	assert.Equal(t, "customer request", f.db.st.refunds[0].Reason)

	require.Len(t, f.publisher.refunded, 1)
	ev := f.publisher.refunded[0]
	assert.Equal(t, conf.BookingID, ev.BookingID)
	assert.Equal(t, int64(18000), ev.AmountCents)
	assert.Equal(t, "customer request", ev.Reason)
}

func TestRefundConvertsWithStoredRate(t *testing.T) {
	f := newRefundFixture()
	conf := f.confirmedBooking(t)

	// The charge was taken in a foreign currency at 0.85 to the house
	// currency; the refund converts with that stored rate.
	p := f.db.st.payments[conf.PaymentID]
	p.FxRateMicros = 850_000
	f.db.st.payments[conf.PaymentID] = p

	result, err := f.refunds.Refund(context.Background(), conf.PaymentID, "customer request")
	require.NoError(t, err)
	assert.Equal(t, int64(18000), result.AmountCents)
	assert.Equal(t, int64(15300), result.BaseAmountCents)
}

func TestRefundIsSingleShot(t *testing.T) {
	f := newRefundFixture()
	conf := f.confirmedBooking(t)

	_, err := f.refunds.Refund(context.Background(), conf.PaymentID, "first")
	require.NoError(t, err)

	_, err = f.refunds.Refund(context.Background(), conf.PaymentID, "second")
	assert.ErrorIs(t, err, ErrNotEligibleForRefund)
	assert.Len(t, f.db.st.refunds, 1)
	assert.Len(t, f.publisher.refunded, 1)
	assert.Equal(t, model.SeatAvailable, f.db.st.seats[101].Status)
}

func TestRefundRequiresConfirmedPayment(t *testing.T) {
	f := newRefundFixture()
	handle := f.lockSeats(t, SeatSelection{SeatUnitID: 101, TicketTypeID: 1})
	conf, err := f.svc.Checkout(context.Background(), testOwner, handle.Token, "", "CARD")
	require.NoError(t, err)

	// Still PENDING: not eligible.
	_, err = f.refunds.Refund(context.Background(), conf.PaymentID, "too early")
	assert.ErrorIs(t, err, ErrNotEligibleForRefund)
	assert.Equal(t, model.SeatBooked, f.db.st.seats[101].Status)
}

func TestRefundBookingNoLongerConfirmed(t *testing.T) {
	f := newRefundFixture()
	conf := f.confirmedBooking(t)

	// The booking left CONFIRMED behind this refund's back.  The refund
	// must refuse and roll back, leaving the payment SUCCESS and no
	// refund row, instead of refunding a booking it did not cancel.
	b := f.db.st.bookings[conf.BookingID]
	b.Status = model.BookingCancelled
	f.db.st.bookings[conf.BookingID] = b

	_, err := f.refunds.Refund(context.Background(), conf.PaymentID, "customer request")
	assert.ErrorIs(t, err, ErrNotEligibleForRefund)

	assert.Equal(t, model.PaymentSuccess, f.db.st.payments[conf.PaymentID].Status)
	assert.Equal(t, model.SeatBooked, f.db.st.seats[101].Status)
	assert.Empty(t, f.db.st.refunds)
	assert.Empty(t, f.publisher.refunded)
}

func TestRefundGatewayFailureMutatesNothing(t *testing.T) {
	f := newRefundFixture()
	conf := f.confirmedBooking(t)

	f.gateway.refundErr = errBoom
	_, err := f.refunds.Refund(context.Background(), conf.PaymentID, "customer request")
	assert.ErrorIs(t, err, ErrGatewayRefundFailed)

	assert.Equal(t, model.PaymentSuccess, f.db.st.payments[conf.PaymentID].Status)
	assert.Equal(t, model.BookingConfirmed, f.db.st.bookings[conf.BookingID].Status)
	assert.Equal(t, model.SeatBooked, f.db.st.seats[101].Status)
	assert.Empty(t, f.db.st.refunds)
	assert.Empty(t, f.publisher.refunded)
}

func TestRefundValidation(t *testing.T) {
	f := newRefundFixture()
	ctx := context.Background()

	_, err := f.refunds.Refund(ctx, 1, "")
	assert.ErrorIs(t, err, ErrReasonRequired)

	_, err = f.refunds.Refund(ctx, 9999, "unknown payment")
	assert.ErrorIs(t, err, repository.ErrPaymentNotFound)
}

func TestRefundSeatsCanBeLockedAgain(t *testing.T) {
	f := newRefundFixture()
	conf := f.confirmedBooking(t)
	_, err := f.refunds.Refund(context.Background(), conf.PaymentID, "customer request")
	require.NoError(t, err)

	// The inventory is genuinely back on sale.
	handle, err := f.manager.Lock(context.Background(), model.UserOwner(7), 1, []SeatSelection{
		{SeatUnitID: 101, TicketTypeID: 1},
		{SeatUnitID: 102, TicketTypeID: 1},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, handle.Token)
}
