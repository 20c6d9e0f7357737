// Package repository implements the durable system of record on MySQL.
// Sentinel errors defined here let the service layer distinguish "row
// missing" conditions from real database failures without leaking SQL
// details upward.
package repository

import "errors"

// ErrShowtimeNotFound is returned when a referenced showtime does not
// exist.
var ErrShowtimeNotFound = errors.New("showtime not found")

// ErrSeatNotFound is returned when a referenced seat inventory unit does
// not exist or does not belong to the requested showtime.
var ErrSeatNotFound = errors.New("seat unit not found")

// ErrLockNotFound is returned when no lock row matches the given token or
// owner/showtime pair.
var ErrLockNotFound = errors.New("lock not found")

// ErrDuplicateActiveLock is returned when inserting a lock trips the
// unique key on (owner_key, showtime_id, active_flag): the owner already
// holds an active lock on that showtime.
var ErrDuplicateActiveLock = errors.New("owner already holds an active lock")

// ErrPaymentNotFound is returned when no payment row matches the given id.
var ErrPaymentNotFound = errors.New("payment not found")

// ErrBookingNotFound is returned when no booking row matches the given id.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPromotionNotFound is returned when no active promotion carries the
// given code.
var ErrPromotionNotFound = errors.New("promotion not found")
