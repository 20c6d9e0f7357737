package model

import "time"

// Lock is a time-boxed reservation over a set of seat units for one
// showtime, scoped to one owner.  Locks are never deleted; they are
// deactivated on release, checkout or expiry and retained for audit.
// At most one active lock may exist per (owner, showtime).
//
// Fields:
//  ID         – primary key identifier.
//  OwnerKey   – canonical owner string ("user:<id>" or "guest:<session>").
//  ShowtimeID – showtime the locked seats belong to.
//  Token      – opaque capability token returned to the client; knowing
//               the token is proof of ownership at checkout.
//  Seats      – immutable set of locked seat units with chosen ticket types.
//  ExpiresAt  – when the lock expires.
//  Active     – false once released, consumed or reaped.
//  CreatedAt  – when the lock was created.
type Lock struct {
	ID         uint64     // seat_locks.id
	OwnerKey   string     // seat_locks.owner_key
	ShowtimeID uint64     // seat_locks.showtime_id
	Token      string     // seat_locks.lock_token
	Seats      []LockSeat // seat_lock_seats rows
	ExpiresAt  time.Time  // seat_locks.expires_at
	Active     bool       // seat_locks.active
	CreatedAt  time.Time  // seat_locks.created_at
}

// LockSeat pairs one locked seat unit with the ticket type the buyer
// selected for it.
type LockSeat struct {
	SeatUnitID   uint64 // seat_lock_seats.seat_unit_id
	TicketTypeID uint64 // seat_lock_seats.ticket_type_id
}

// Expired reports whether the lock's TTL has elapsed at the given instant.
func (l *Lock) Expired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

// SeatUnitIDs returns the locked seat unit IDs in stored order.
func (l *Lock) SeatUnitIDs() []uint64 {
	ids := make([]uint64, 0, len(l.Seats))
	for _, s := range l.Seats {
		ids = append(ids, s.SeatUnitID)
	}
	return ids
}
