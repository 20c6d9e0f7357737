package model

import "time"

// SeatStatus is the availability state of a seat inventory unit.  A unit
// only ever moves AVAILABLE -> LOCKED -> BOOKED, back to AVAILABLE on
// release, expiry or refund.  Transitions are enforced with guarded
// UPDATE statements in the repository layer.
type SeatStatus string

const (
	SeatAvailable SeatStatus = "AVAILABLE"
	SeatLocked    SeatStatus = "LOCKED"
	SeatBooked    SeatStatus = "BOOKED"
)

// SeatUnit is one physical seat bound to one showtime.  There is one
// showtime_seats row for every seat in the room when a showtime is
// scheduled.
//
// Fields:
//  ID         – primary key identifier.
//  ShowtimeID – showtime this unit belongs to.
//  SeatID     – physical seat being sold.
//  RowLabel   – seat row label, e.g. "F".
//  SeatNumber – seat number within the row.
//  SeatType   – seat category used by pricing (STANDARD, VIP, COUPLE).
//  Status     – availability status (AVAILABLE, LOCKED, BOOKED).
//  PriceCents – per-unit base price override; 0 means "use the active
//               base price configuration".
//  CreatedAt  – timestamp when the record was created.
//  UpdatedAt  – timestamp when the record was last updated.
type SeatUnit struct {
	ID         uint64     // showtime_seats.id
	ShowtimeID uint64     // showtime_seats.showtime_id
	SeatID     uint64     // showtime_seats.seat_id
	RowLabel   string     // seats.row_label
	SeatNumber uint32     // seats.seat_number
	SeatType   string     // seats.seat_type
	Status     SeatStatus // showtime_seats.status
	PriceCents int64      // showtime_seats.price_cents
	CreatedAt  time.Time  // showtime_seats.created_at
	UpdatedAt  time.Time  // showtime_seats.updated_at
}
