// Package pricing computes final seat prices from a base price, a set of
// conditional modifiers and a ticket-type step.  It is a pure function of
// its inputs: callers fetch a Snapshot once per operation and pass it in,
// so two calls with the same inputs always return the same price.
//
// All money is int64 cents.  Multiplicative factors are basis points
// (10000 = x1.0) so the arithmetic stays exact integer math; rounding is
// half-up at each multiplicative step.
package pricing

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Modifier kinds.  AMOUNT adds cents to the running total; FACTOR
// multiplies it by value/10000.
const (
	KindAmount = "AMOUNT"
	KindFactor = "FACTOR"
)

// Modifier condition types.  The condition value is matched against the
// seat/showtime context; TIME_RANGE uses an "HH:MM-HH:MM" window over the
// showtime start.
const (
	CondSeatType  = "SEAT_TYPE"
	CondRoomType  = "ROOM_TYPE"
	CondFormat    = "FORMAT"
	CondDayType   = "DAY_TYPE"
	CondTimeRange = "TIME_RANGE"
)

// Day types derived from the showtime start.
const (
	DayWeekday = "WEEKDAY"
	DayWeekend = "WEEKEND"
)

// ErrNoActiveBasePrice signals that no base price configuration is active
// for a showtime and none is stored on the seat unit.  This is a
// configuration fault, not user input; handlers surface it as a server
// error, never as a retryable conflict.
var ErrNoActiveBasePrice = errors.New("no active base price")

// Modifier is one conditional price adjustment.
type Modifier struct {
	ID             uint64
	ConditionType  string
	ConditionValue string
	Kind           string
	Value          int64 // cents for AMOUNT, basis points for FACTOR
	Active         bool
}

// SeatContext carries the attributes a modifier condition can match for
// one seat in one showtime.
type SeatContext struct {
	SeatType string
	RoomType string
	Format   string
	StartsAt time.Time
}

// TicketStep is the ticket type's pricing step, always applied last.
type TicketStep struct {
	Kind  string
	Value int64
}

// Snapshot is the pricing configuration retrieved once per operation: the
// active base price and every active modifier.  Passing it explicitly
// keeps the engine free of ambient state.
type Snapshot struct {
	BasePriceCents int64
	Modifiers      []Modifier
}

// SeatBase resolves the base price for a seat unit: the unit's stored
// override when present, otherwise the snapshot's active base price.
// ErrNoActiveBasePrice when neither exists.
func (s *Snapshot) SeatBase(override int64) (int64, error) {
	if override > 0 {
		return override, nil
	}
	if s.BasePriceCents > 0 {
		return s.BasePriceCents, nil
	}
	return 0, ErrNoActiveBasePrice
}

// ComputeSeatPrice computes the final price of one seat.  Order is fixed:
// every matching AMOUNT modifier is summed onto the base first, then every
// matching FACTOR modifier is applied in ascending modifier-ID order, and
// the ticket-type step runs last.  Additive-then-multiplicative ordering
// matters because the two kinds do not commute with each other.
func ComputeSeatPrice(baseCents int64, sc SeatContext, ticket TicketStep, mods []Modifier) int64 {
	total := baseCents

	matched := make([]Modifier, 0, len(mods))
	for _, m := range mods {
		if m.Active && matches(m, sc) {
			matched = append(matched, m)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	for _, m := range matched {
		if m.Kind == KindAmount {
			total += m.Value
		}
	}
	for _, m := range matched {
		if m.Kind == KindFactor {
			total = applyFactor(total, m.Value)
		}
	}

	switch ticket.Kind {
	case KindAmount:
		total += ticket.Value
	case KindFactor:
		total = applyFactor(total, ticket.Value)
	}
	if total < 0 {
		total = 0
	}
	return total
}

// ApplyDiscount applies a booking-level promotion discount to a total and
// returns (discount, final).  PERCENT truncates toward zero; FIXED is
// capped at the total so the final price never goes negative.
func ApplyDiscount(totalCents int64, discountType string, value int64) (int64, int64) {
	var discount int64
	switch discountType {
	case DiscountPercent:
		discount = totalCents * value / 100
	case DiscountFixed:
		discount = value
	}
	if discount > totalCents {
		discount = totalCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount, totalCents - discount
}

// Discount types mirrored from model to keep this package dependency-free.
const (
	DiscountPercent = "PERCENT"
	DiscountFixed   = "FIXED"
)

// applyFactor multiplies cents by a basis-point factor with half-up
// rounding.
func applyFactor(cents, basisPoints int64) int64 {
	return (cents*basisPoints + 5000) / 10000
}

// DayTypeOf classifies a showtime start for DAY_TYPE conditions.
func DayTypeOf(t time.Time) string {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return DayWeekend
	}
	return DayWeekday
}

func matches(m Modifier, sc SeatContext) bool {
	switch m.ConditionType {
	case CondSeatType:
		return strings.EqualFold(m.ConditionValue, sc.SeatType)
	case CondRoomType:
		return strings.EqualFold(m.ConditionValue, sc.RoomType)
	case CondFormat:
		return strings.EqualFold(m.ConditionValue, sc.Format)
	case CondDayType:
		return strings.EqualFold(m.ConditionValue, DayTypeOf(sc.StartsAt))
	case CondTimeRange:
		return inTimeRange(m.ConditionValue, sc.StartsAt)
	}
	return false
}

// inTimeRange checks an "HH:MM-HH:MM" window against the start time of
// day.  Windows wrapping midnight (e.g. "22:00-02:00") are supported.
// A malformed window never matches.
func inTimeRange(window string, at time.Time) bool {
	fromStr, toStr, ok := strings.Cut(window, "-")
	if !ok {
		return false
	}
	from, okFrom := minutesOfDay(fromStr)
	to, okTo := minutesOfDay(toStr)
	if !okFrom || !okTo {
		return false
	}
	cur := at.Hour()*60 + at.Minute()
	if from <= to {
		return cur >= from && cur < to
	}
	return cur >= from || cur < to
}

func minutesOfDay(s string) (int, bool) {
	hhStr, mmStr, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, false
	}
	hh, err1 := strconv.Atoi(hhStr)
	mm, err2 := strconv.Atoi(mmStr)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, false
	}
	return hh*60 + mm, true
}
