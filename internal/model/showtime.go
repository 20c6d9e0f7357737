package model

import "time"

// Showtime is a scheduled screening of a movie in a particular room.
// The engine reads showtimes only; catalog management owns them.
//
// Fields:
//  ID        – primary key identifier.
//  RoomID    – room where the screening takes place.
//  Title     – movie title or an external reference.
//  RoomType  – room category used by pricing (2D room, IMAX, ...).
//  Format    – projection format used by pricing (2D, 3D, IMAX).
//  StartsAt  – when the screening begins.
//  EndsAt    – when the screening ends.
//  Status    – current state (SCHEDULED, CANCELLED, FINISHED).
type Showtime struct {
	ID       uint64    // showtimes.id
	RoomID   uint64    // showtimes.room_id
	Title    string    // showtimes.title
	RoomType string    // rooms.room_type
	Format   string    // showtimes.format
	StartsAt time.Time // showtimes.starts_at
	EndsAt   time.Time // showtimes.ends_at
	Status   string    // showtimes.status
}

// TicketType is a purchasable ticket category (adult, student, child)
// selected per seat at lock time.  Its pricing step is applied last in
// the per-seat computation; Kind/Value follow the pricing modifier
// encoding (AMOUNT in cents or FACTOR in basis points).
type TicketType struct {
	ID     uint64 // ticket_types.id
	Name   string // ticket_types.name
	Kind   string // ticket_types.kind (AMOUNT or FACTOR)
	Value  int64  // ticket_types.value
	Active bool   // ticket_types.active
}
