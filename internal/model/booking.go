package model

import "time"

// BookingStatus is the lifecycle state of a booking.  A booking is
// created PENDING_PAYMENT, moves to CONFIRMED when the gateway confirms
// the payment, and to CANCELLED on refund.
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingConfirmed      BookingStatus = "CONFIRMED"
	BookingCancelled      BookingStatus = "CANCELLED"
)

// Booking records a completed checkout: the seats bought, the prices
// applied, and an optional promotion.  It is created atomically with its
// seat line items and the pending payment record.
//
// Fields:
//  ID            – primary key identifier.
//  OwnerKey      – canonical owner string; guests can book too.
//  ShowtimeID    – showtime being booked.
//  Status        – PENDING_PAYMENT, CONFIRMED or CANCELLED.
//  TotalCents    – sum of per-seat final prices before any discount.
//  DiscountCents – promotion discount applied at the booking level.
//  FinalCents    – total after discount; what the gateway charges.
//  PromotionID   – applied promotion, if any.
//  TicketCode    – QR/ticket code, set once payment is confirmed.
type Booking struct {
	ID            uint64        // bookings.id
	OwnerKey      string        // bookings.owner_key
	ShowtimeID    uint64        // bookings.showtime_id
	Status        BookingStatus // bookings.status
	TotalCents    int64         // bookings.total_cents
	DiscountCents int64         // bookings.discount_cents
	FinalCents    int64         // bookings.final_cents
	PromotionID   *uint64       // bookings.promotion_id (nullable)
	TicketCode    *string       // bookings.ticket_code (nullable)
	CreatedAt     time.Time     // bookings.created_at
	UpdatedAt     time.Time     // bookings.updated_at
}

// BookingSeat is one seat line item of a booking, carrying the ticket
// type and the final per-seat price at the moment of checkout.
type BookingSeat struct {
	ID           uint64 // booking_seats.id
	BookingID    uint64 // booking_seats.booking_id
	ShowtimeID   uint64 // booking_seats.showtime_id
	SeatUnitID   uint64 // booking_seats.seat_unit_id
	TicketTypeID uint64 // booking_seats.ticket_type_id
	PriceCents   int64  // booking_seats.price_cents
}
