// Package queue defines the message payloads exchanged over the broker
// and the background consumer that turns them into an audit log.
package queue

// Queue names.  One durable queue per event kind.
const (
	ConfirmedQueue = "booking.confirmed"
	RefundedQueue  = "booking.refunded"
)

// BookingConfirmedEvent is published when a payment is confirmed and the
// booking becomes CONFIRMED.  It carries enough for downstream consumers
// to log, notify or feed analytics without querying the primary
// database.
type BookingConfirmedEvent struct {
	BookingID   uint64   `json:"booking_id"`
	PaymentID   uint64   `json:"payment_id"`
	OwnerKey    string   `json:"owner_key"`
	ShowtimeID  uint64   `json:"showtime_id"`
	SeatUnitIDs []uint64 `json:"seat_unit_ids"`
	TotalCents  int64    `json:"total_cents"`
	FinalCents  int64    `json:"final_cents"`
	TicketCode  string   `json:"ticket_code"`
	ConfirmedAt string   `json:"confirmed_at"`
}

// BookingRefundedEvent is published after a successful refund reversed a
// booking.
type BookingRefundedEvent struct {
	BookingID   uint64 `json:"booking_id"`
	PaymentID   uint64 `json:"payment_id"`
	RefundID    uint64 `json:"refund_id"`
	OwnerKey    string `json:"owner_key"`
	ShowtimeID  uint64 `json:"showtime_id"`
	AmountCents int64  `json:"amount_cents"`
	Reason      string `json:"reason"`
	RefundedAt  string `json:"refunded_at"`
}
