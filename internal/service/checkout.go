package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/cinema-booking-engine/internal/clock"
	"github.com/iliyamo/cinema-booking-engine/internal/model"
	"github.com/iliyamo/cinema-booking-engine/internal/pricing"
	"github.com/iliyamo/cinema-booking-engine/internal/queue"
	"github.com/iliyamo/cinema-booking-engine/internal/repository"
)

// BookingConfirmation is the checkout result: the created booking, its
// pending payment, and the per-seat price breakdown actually charged.
type BookingConfirmation struct {
	BookingID     uint64      `json:"booking_id"`
	PaymentID     uint64      `json:"payment_id"`
	GatewayRef    string      `json:"gateway_ref"`
	Status        string      `json:"status"`
	Seats         []SeatPrice `json:"seats"`
	TotalCents    int64       `json:"total_cents"`
	DiscountCents int64       `json:"discount_cents"`
	FinalCents    int64       `json:"final_cents"`
}

// Ticket is the confirmation result: the QR code issued once the gateway
// confirms the payment.
type Ticket struct {
	BookingID  uint64 `json:"booking_id"`
	TicketCode string `json:"ticket_code"`
}

// CheckoutService turns a valid lock into a priced, payment-pending
// booking in one atomic unit of work, and advances it to CONFIRMED when
// the gateway confirms.  Everything between lock resolution and payment
// creation runs in a single transaction: a failure anywhere, including
// the gateway initiate call, rolls the whole unit back and leaves the
// seats LOCKED under the still-valid lock.
type CheckoutService struct {
	tx        TxRunner
	seats     SeatUnits
	locks     Locks
	bookings  Bookings
	payments  Payments
	promos    Promotions
	catalog   Catalog
	store     SeatLockStore
	gateway   PaymentGateway
	publisher EventPublisher
	clk       clock.Clock
	methods   map[string]struct{}
	currency  string
}

// NewCheckoutService constructs a CheckoutService.  methods is the
// deployment's supported payment method set; currency is the house
// currency charged by the gateway.
func NewCheckoutService(tx TxRunner, seats SeatUnits, locks Locks, bookings Bookings, payments Payments,
	promos Promotions, catalog Catalog, store SeatLockStore, gateway PaymentGateway,
	publisher EventPublisher, clk clock.Clock, methods []string, currency string) *CheckoutService {
	if tx == nil || seats == nil || locks == nil || bookings == nil || payments == nil ||
		promos == nil || catalog == nil || store == nil || gateway == nil || clk == nil {
		panic("nil dependency passed to NewCheckoutService")
	}
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return &CheckoutService{
		tx: tx, seats: seats, locks: locks, bookings: bookings, payments: payments,
		promos: promos, catalog: catalog, store: store, gateway: gateway,
		publisher: publisher, clk: clk, methods: set, currency: currency,
	}
}

// Checkout consumes the lock identified by token and creates the booking
// plus its pending payment.  Prices are recomputed from the current
// configuration, not from the lock-time preview, so a stale preview can
// never be charged.  The lock row is re-read and deactivated inside the
// transaction, which is what beats a reaper racing on the same lock:
// whichever side deactivates first wins, and the loser sees it.
func (s *CheckoutService) Checkout(ctx context.Context, owner model.OwnerKey, lockToken, promoCode, method string) (*BookingConfirmation, error) {
	if _, ok := s.methods[method]; !ok {
		return nil, ErrInvalidPaymentMethod
	}

	var conf *BookingConfirmation
	var lock *model.Lock
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		lock, err = s.locks.GetByToken(ctx, lockToken)
		if err != nil {
			return err
		}
		if !lock.Active {
			// Released, consumed or reaped; for an expired lock that the
			// reaper already processed this reports expiry, not absence.
			if lock.Expired(s.clk.Now()) {
				return ErrLockExpired
			}
			return repository.ErrLockNotFound
		}
		if lock.OwnerKey != owner.String() {
			return ErrForbidden
		}
		now := s.clk.Now()
		if lock.Expired(now) {
			return ErrLockExpired
		}

		showtime, err := s.catalog.GetShowtime(ctx, lock.ShowtimeID)
		if err != nil {
			return err
		}
		ticketTypes, err := s.catalog.TicketTypes(ctx, lock.ShowtimeID)
		if err != nil {
			return err
		}
		snap, err := s.catalog.PriceSnapshot(ctx)
		if err != nil {
			return err
		}
		units, err := s.seats.GetForShowtime(ctx, lock.ShowtimeID, lock.SeatUnitIDs())
		if err != nil {
			return err
		}
		byID := make(map[uint64]model.SeatUnit, len(units))
		for _, u := range units {
			byID[u.ID] = u
		}

		prices := make([]SeatPrice, 0, len(lock.Seats))
		for _, ls := range lock.Seats {
			unit, ok := byID[ls.SeatUnitID]
			if !ok {
				// A seat vanished under an active lock: data integrity
				// fault, not user error.
				return repository.ErrSeatNotFound
			}
			tt, ok := ticketTypes[ls.TicketTypeID]
			if !ok {
				return ErrTicketTypeNotActive
			}
			cents, err := priceUnit(snap, showtime, unit, tt)
			if err != nil {
				return err
			}
			prices = append(prices, SeatPrice{
				SeatUnitID:   unit.ID,
				RowLabel:     unit.RowLabel,
				SeatNumber:   unit.SeatNumber,
				TicketTypeID: tt.ID,
				PriceCents:   cents,
			})
		}
		total := sumPrices(prices)

		var discount int64
		final := total
		var promoID *uint64
		if promoCode != "" {
			promo, err := s.validatePromotion(ctx, owner, promoCode, now)
			if err != nil {
				return err
			}
			discount, final = pricing.ApplyDiscount(total, promo.DiscountType, promo.Value)
			promoID = &promo.ID
		}

		booking := &model.Booking{
			OwnerKey:      owner.String(),
			ShowtimeID:    lock.ShowtimeID,
			Status:        model.BookingPendingPayment,
			TotalCents:    total,
			DiscountCents: discount,
			FinalCents:    final,
			PromotionID:   promoID,
		}
		if err := s.bookings.Create(ctx, booking); err != nil {
			return err
		}
		lines := make([]model.BookingSeat, 0, len(prices))
		for _, p := range prices {
			lines = append(lines, model.BookingSeat{
				BookingID:    booking.ID,
				ShowtimeID:   lock.ShowtimeID,
				SeatUnitID:   p.SeatUnitID,
				TicketTypeID: p.TicketTypeID,
				PriceCents:   p.PriceCents,
			})
		}
		if err := s.bookings.CreateSeats(ctx, lines); err != nil {
			return err
		}

		// The lock owns its seats, so this transition can only come up
		// short if the reaper reclaimed them after our lock read; the
		// deactivation guard below catches the same race, but check both.
		n, err := s.seats.UpdateStatus(ctx, lock.ShowtimeID, lock.SeatUnitIDs(), model.SeatLocked, model.SeatBooked)
		if err != nil {
			return err
		}
		if n != int64(len(lock.Seats)) {
			return ErrLockExpired
		}
		won, err := s.locks.Deactivate(ctx, lock.ID)
		if err != nil {
			return err
		}
		if !won {
			return ErrLockExpired
		}

		if promoID != nil {
			usage := &model.PromotionUsage{PromotionID: *promoID, BookingID: booking.ID, OwnerKey: owner.String()}
			if err := s.promos.RecordUsage(ctx, usage); err != nil {
				return err
			}
		}

		// Gateway initiation is the last step inside the unit of work: a
		// gateway failure rolls back everything above, leaving the seats
		// LOCKED and the lock token still valid for a retry.
		ref, err := s.gateway.Initiate(ctx, final, s.currency, method)
		if err != nil {
			log.Printf("checkout: gateway initiate failed for booking %d: %v", booking.ID, err)
			return ErrPaymentInitiationFailed
		}
		payment := &model.Payment{
			BookingID:    booking.ID,
			Method:       method,
			GatewayRef:   ref,
			AmountCents:  final,
			Currency:     s.currency,
			FxRateMicros: 1_000_000,
			Status:       model.PaymentPending,
		}
		if err := s.payments.Create(ctx, payment); err != nil {
			return err
		}

		conf = &BookingConfirmation{
			BookingID:     booking.ID,
			PaymentID:     payment.ID,
			GatewayRef:    ref,
			Status:        string(model.BookingPendingPayment),
			Seats:         prices,
			TotalCents:    total,
			DiscountCents: discount,
			FinalCents:    final,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The seats are durably BOOKED; the fast entries are now redundant
	// and cleared best-effort (they expire on their own anyway).
	for _, id := range lock.SeatUnitIDs() {
		if err := s.store.Release(ctx, lock.ShowtimeID, id, lock.Token); err != nil {
			log.Printf("checkout: releasing fast entry %d/%d failed: %v", lock.ShowtimeID, id, err)
		}
	}
	return conf, nil
}

// ConfirmPayment completes a pending payment after the gateway confirms
// the charge: payment to SUCCESS, booking to CONFIRMED, ticket code
// issued.  ErrPaymentAlreadySettled when the payment left PENDING
// through another path.
func (s *CheckoutService) ConfirmPayment(ctx context.Context, paymentID uint64) (*Ticket, error) {
	var ticket *Ticket
	var ev queue.BookingConfirmedEvent
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		payment, err := s.payments.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}
		if payment.Status != model.PaymentPending {
			return ErrPaymentAlreadySettled
		}
		if err := s.gateway.Confirm(ctx, payment.GatewayRef); err != nil {
			log.Printf("checkout: gateway confirm failed for payment %d: %v", payment.ID, err)
			return ErrPaymentNotConfirmed
		}
		now := s.clk.Now()
		won, err := s.payments.MarkSucceeded(ctx, payment.ID, now)
		if err != nil {
			return err
		}
		if !won {
			return ErrPaymentAlreadySettled
		}
		confirmed, err := s.bookings.UpdateStatus(ctx, payment.BookingID, model.BookingPendingPayment, model.BookingConfirmed)
		if err != nil {
			return err
		}
		if !confirmed {
			// The booking left PENDING_PAYMENT through another path;
			// rolling back also undoes MarkSucceeded above.
			return ErrPaymentAlreadySettled
		}
		code := uuid.NewString()
		if err := s.bookings.SetTicketCode(ctx, payment.BookingID, code); err != nil {
			return err
		}

		booking, err := s.bookings.GetByID(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		seatIDs, err := s.bookings.SeatUnitIDs(ctx, payment.BookingID)
		if err != nil {
			return err
		}
		ticket = &Ticket{BookingID: booking.ID, TicketCode: code}
		ev = queue.BookingConfirmedEvent{
			BookingID:   booking.ID,
			PaymentID:   payment.ID,
			OwnerKey:    booking.OwnerKey,
			ShowtimeID:  booking.ShowtimeID,
			SeatUnitIDs: seatIDs,
			TotalCents:  booking.TotalCents,
			FinalCents:  booking.FinalCents,
			TicketCode:  code,
			ConfirmedAt: now.Format(time.RFC3339),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.BookingConfirmed(ctx, ev)
	}
	return ticket, nil
}

// validatePromotion enforces the activation window and both usage limits
// inside the checkout transaction.  Every failure mode collapses to
// ErrInvalidPromotion: the caller learns the code is unusable, not why,
// per the promotion abuse surface.
func (s *CheckoutService) validatePromotion(ctx context.Context, owner model.OwnerKey, code string, now time.Time) (*model.Promotion, error) {
	promo, err := s.promos.GetActiveByCode(ctx, code)
	if err != nil {
		return nil, ErrInvalidPromotion
	}
	if !promo.InWindow(now) {
		return nil, ErrInvalidPromotion
	}
	if promo.UsageLimit > 0 {
		used, err := s.promos.CountUsages(ctx, promo.ID)
		if err != nil {
			return nil, err
		}
		if used >= promo.UsageLimit {
			return nil, ErrInvalidPromotion
		}
	}
	if promo.PerUserLimit > 0 {
		used, err := s.promos.CountUsagesByOwner(ctx, promo.ID, owner.String())
		if err != nil {
			return nil, err
		}
		if used >= promo.PerUserLimit {
			return nil, ErrInvalidPromotion
		}
	}
	return promo, nil
}
