package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Saturday evening IMAX context used across tests.
var weekendCtx = SeatContext{
	SeatType: "VIP",
	RoomType: "IMAX",
	Format:   "3D",
	StartsAt: time.Date(2025, 6, 7, 19, 30, 0, 0, time.UTC), // Saturday
}

func TestComputeSeatPrice_AdditiveThenMultiplicative(t *testing.T) {
	mods := []Modifier{
		{ID: 3, ConditionType: CondDayType, ConditionValue: "WEEKEND", Kind: KindFactor, Value: 12000, Active: true},
		{ID: 1, ConditionType: CondSeatType, ConditionValue: "VIP", Kind: KindAmount, Value: 20000, Active: true},
		{ID: 2, ConditionType: CondFormat, ConditionValue: "3D", Kind: KindAmount, Value: 15000, Active: true},
	}
	// 80000 + 20000 + 15000 = 115000, then x1.2 = 138000
	got := ComputeSeatPrice(80000, weekendCtx, TicketStep{}, mods)
	assert.Equal(t, int64(138000), got)
}

func TestComputeSeatPrice_Deterministic(t *testing.T) {
	mods := []Modifier{
		{ID: 2, ConditionType: CondFormat, ConditionValue: "3D", Kind: KindFactor, Value: 11000, Active: true},
		{ID: 1, ConditionType: CondRoomType, ConditionValue: "IMAX", Kind: KindFactor, Value: 10500, Active: true},
	}
	first := ComputeSeatPrice(90000, weekendCtx, TicketStep{Kind: KindFactor, Value: 9000}, mods)
	second := ComputeSeatPrice(90000, weekendCtx, TicketStep{Kind: KindFactor, Value: 9000}, mods)
	assert.Equal(t, first, second)
}

func TestComputeSeatPrice_SkipsInactiveAndUnmatched(t *testing.T) {
	mods := []Modifier{
		{ID: 1, ConditionType: CondSeatType, ConditionValue: "VIP", Kind: KindAmount, Value: 20000, Active: false},
		{ID: 2, ConditionType: CondSeatType, ConditionValue: "COUPLE", Kind: KindAmount, Value: 30000, Active: true},
	}
	got := ComputeSeatPrice(80000, weekendCtx, TicketStep{}, mods)
	assert.Equal(t, int64(80000), got)
}

func TestComputeSeatPrice_TicketStepLast(t *testing.T) {
	mods := []Modifier{
		{ID: 1, ConditionType: CondSeatType, ConditionValue: "VIP", Kind: KindAmount, Value: 20000, Active: true},
	}
	// (80000 + 20000) then student ticket x0.8 = 80000
	got := ComputeSeatPrice(80000, weekendCtx, TicketStep{Kind: KindFactor, Value: 8000}, mods)
	assert.Equal(t, int64(80000), got)

	// additive ticket step
	got = ComputeSeatPrice(80000, weekendCtx, TicketStep{Kind: KindAmount, Value: -10000}, mods)
	assert.Equal(t, int64(90000), got)
}

func TestComputeSeatPrice_NeverNegative(t *testing.T) {
	got := ComputeSeatPrice(5000, weekendCtx, TicketStep{Kind: KindAmount, Value: -10000}, nil)
	assert.Equal(t, int64(0), got)
}

func TestComputeSeatPrice_TimeRange(t *testing.T) {
	lateNight := Modifier{
		ID: 1, ConditionType: CondTimeRange, ConditionValue: "22:00-02:00",
		Kind: KindAmount, Value: 5000, Active: true,
	}
	morning := SeatContext{StartsAt: time.Date(2025, 6, 9, 9, 0, 0, 0, time.UTC)}
	midnight := SeatContext{StartsAt: time.Date(2025, 6, 9, 23, 30, 0, 0, time.UTC)}
	afterMidnight := SeatContext{StartsAt: time.Date(2025, 6, 9, 1, 0, 0, 0, time.UTC)}

	assert.Equal(t, int64(10000), ComputeSeatPrice(10000, morning, TicketStep{}, []Modifier{lateNight}))
	assert.Equal(t, int64(15000), ComputeSeatPrice(10000, midnight, TicketStep{}, []Modifier{lateNight}))
	assert.Equal(t, int64(15000), ComputeSeatPrice(10000, afterMidnight, TicketStep{}, []Modifier{lateNight}))

	malformed := Modifier{ID: 2, ConditionType: CondTimeRange, ConditionValue: "late", Kind: KindAmount, Value: 5000, Active: true}
	assert.Equal(t, int64(10000), ComputeSeatPrice(10000, midnight, TicketStep{}, []Modifier{malformed}))
}

func TestDayTypeOf(t *testing.T) {
	assert.Equal(t, DayWeekend, DayTypeOf(time.Date(2025, 6, 8, 12, 0, 0, 0, time.UTC))) // Sunday
	assert.Equal(t, DayWeekday, DayTypeOf(time.Date(2025, 6, 9, 12, 0, 0, 0, time.UTC))) // Monday
}

func TestSnapshotSeatBase(t *testing.T) {
	snap := &Snapshot{BasePriceCents: 80000}

	base, err := snap.SeatBase(0)
	assert.NoError(t, err)
	assert.Equal(t, int64(80000), base)

	base, err = snap.SeatBase(95000)
	assert.NoError(t, err)
	assert.Equal(t, int64(95000), base)

	empty := &Snapshot{}
	_, err = empty.SeatBase(0)
	assert.ErrorIs(t, err, ErrNoActiveBasePrice)
}

func TestApplyDiscount(t *testing.T) {
	discount, final := ApplyDiscount(138000, DiscountPercent, 10)
	assert.Equal(t, int64(13800), discount)
	assert.Equal(t, int64(124200), final)

	discount, final = ApplyDiscount(138000, DiscountFixed, 50000)
	assert.Equal(t, int64(50000), discount)
	assert.Equal(t, int64(88000), final)

	// fixed discount larger than the total is capped
	discount, final = ApplyDiscount(30000, DiscountFixed, 50000)
	assert.Equal(t, int64(30000), discount)
	assert.Equal(t, int64(0), final)
}
